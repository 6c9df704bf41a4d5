package taxonomy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

func colorModel() *EntityModel {
	return NewEntityModel(
		NewEntityGroup("color",
			NewEntity("RED", "red", "crimson"),
		),
	)
}

func TestRecognize_WorkedExamples(t *testing.T) {
	m := NewMatcher(colorModel())

	assert.Equal(t,
		[]nlu.EntityMatch{{Start: 7, End: 14, Value: "RED", Confidence: 1.0, Entity: "color"}},
		m.Recognize("I like crimson shirts"))

	assert.Equal(t, []nlu.EntityMatch{}, m.Recognize("I dislike categorization"))
}

func TestRecognize_EmptyModelMatchesNothing(t *testing.T) {
	inputs := []string{"", "red", "anything at all", "crimson crimson"}
	for _, model := range []*EntityModel{nil, Empty(), NewEntityModel()} {
		m := NewMatcher(model)
		for _, in := range inputs {
			got := m.Recognize(in)
			require.NotNil(t, got)
			assert.Empty(t, got)
		}
	}

	var zero *Matcher
	assert.Empty(t, zero.Recognize("red"))
}

func TestRecognize_WordBoundary(t *testing.T) {
	m := NewMatcher(NewEntityModel(NewEntityGroup("animal", NewEntity("CAT", "cat"))))

	assert.Empty(t, m.Recognize("category"))
	assert.Empty(t, m.Recognize("concatenate"))
	assert.Empty(t, m.Recognize("cat_food"))
	assert.Empty(t, m.Recognize("cat9"))

	got := m.Recognize("category cat")
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].Start)
	assert.Equal(t, 12, got[0].End)

	got = m.Recognize("(cat).")
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Start)
}

func TestRecognize_CaseInsensitive(t *testing.T) {
	m := NewMatcher(NewEntityModel(NewEntityGroup("color", NewEntity("RED", "Crimson"))))

	got := m.Recognize("CRIMSON is loud")
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, 7, got[0].End)
}

func TestRecognize_OneMatchPerEntity(t *testing.T) {
	m := NewMatcher(colorModel())

	got := m.Recognize("red and crimson and red again")
	require.Len(t, got, 1)
	assert.Equal(t, "RED", got[0].Value)
	assert.Equal(t, 0, got[0].Start, "the first value in declaration order wins")
}

func TestRecognize_FirstDeclaredValueWinsOverEarlierPosition(t *testing.T) {
	m := NewMatcher(colorModel())

	got := m.Recognize("crimson, not red")
	require.Len(t, got, 1)
	assert.Equal(t, 13, got[0].Start, "red is declared first even though crimson occurs earlier")
}

func TestRecognize_GroupEntityOrder(t *testing.T) {
	model := NewEntityModel(
		NewEntityGroup("size", NewEntity("LARGE", "large")),
		NewEntityGroup("color",
			NewEntity("BLUE", "blue"),
			NewEntity("RED", "red"),
		),
	)
	m := NewMatcher(model)

	got := m.Recognize("red blue large")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"LARGE", "BLUE", "RED"}, []string{got[0].Value, got[1].Value, got[2].Value})
	assert.Equal(t, []string{"size", "color", "color"}, []string{got[0].Entity, got[1].Entity, got[2].Entity})
}

func TestRecognize_ConfidenceIsOne(t *testing.T) {
	m := NewMatcher(NewEntityModel(NewEntityGroup("g",
		NewEntity("A", "alpha"), NewEntity("B", "beta"), NewEntity("C", "gamma"))))

	for _, match := range m.Recognize("alpha beta gamma") {
		assert.Equal(t, 1.0, match.Confidence)
	}
}

func TestRecognize_MultiWordAndUnicode(t *testing.T) {
	m := NewMatcher(NewEntityModel(
		NewEntityGroup("city", NewEntity("MUNICH", "münchen", "new munich")),
		NewEntityGroup("drink", NewEntity("BEER", "bier")),
	))

	got := m.Recognize("Grüße aus München, Bierstube")
	require.Len(t, got, 1, "bier is followed by a letter")
	assert.Equal(t, "MUNICH", got[0].Value)
	assert.Equal(t, 10, got[0].Start, "offsets count characters, not bytes")
	assert.Equal(t, 17, got[0].End)

	got = m.Recognize("welcome to new munich")
	require.Len(t, got, 1)
	assert.Equal(t, 11, got[0].Start)
}

func TestRecognize_EmptyValueIgnored(t *testing.T) {
	m := NewMatcher(NewEntityModel(NewEntityGroup("g", NewEntity("E", "", "x"))))

	assert.Empty(t, m.Recognize("abc"))
	got := m.Recognize("a x b")
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Start)
}

func TestRecognize_DoesNotMutateInput(t *testing.T) {
	m := NewMatcher(colorModel())
	in := "I like CRIMSON"
	_ = m.Recognize(in)
	assert.Equal(t, "I like CRIMSON", in)
}

func TestRecognize_ConcurrentReaders(t *testing.T) {
	m := NewMatcher(colorModel())
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := m.Recognize("I like crimson shirts")
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()
}

func TestMatcher_Model(t *testing.T) {
	assert.True(t, NewMatcher(nil).Model().IsEmpty())
	assert.Equal(t, 1, NewMatcher(colorModel()).Model().Stats().Entities)
}

//Personal.AI order the ending
