package dating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_OverlapRanking(t *testing.T) {
	s := NewScorer(DefaultWeights())

	a := &Profile{UserID: "a", Languages: []string{"he", "en"}, JudaismDirection: "chabad", Goal: GoalMarriage}
	b := &Profile{UserID: "b", DisplayName: "Batya", Languages: []string{"he"}, JudaismDirection: "chabad", Goal: GoalMarriage}
	c := &Profile{UserID: "c", Languages: []string{"fr"}, JudaismDirection: "reform", Goal: GoalFriendship}

	scoreB, factorsB := s.Score(a, b)
	scoreC, factorsC := s.Score(a, c)

	// 1 shared language + denomination + goal
	assert.Equal(t, 1.0+3.0+2.0, scoreB)
	assert.Equal(t, 1, factorsB.SharedLanguages)
	assert.True(t, factorsB.SameDenomination)
	assert.True(t, factorsB.SameGoal)

	assert.Zero(t, scoreC)
	assert.Equal(t, &CompatibilityFactors{}, factorsC)
	assert.Greater(t, scoreB, scoreC)
}

func TestScorer_IsSymmetric(t *testing.T) {
	s := NewScorer(DefaultWeights())
	a := &Profile{Languages: []string{"he", "en", "ru"}, KashrutLevel: "strict", City: "Haifa", Country: "IL"}
	b := &Profile{Languages: []string{"EN", "ru"}, KashrutLevel: "Strict", City: "haifa", Country: "il", ShabbatLevel: "shomer"}

	ab, _ := s.Score(a, b)
	ba, _ := s.Score(b, a)
	assert.Equal(t, ab, ba)
	assert.Equal(t, 2.0+1.0+0.5, ab)
}

func TestScorer_EmptyAttributesDoNotMatch(t *testing.T) {
	s := NewScorer(DefaultWeights())
	score, factors := s.Score(&Profile{}, &Profile{})
	assert.Zero(t, score)
	assert.False(t, factors.SameDenomination)
	assert.False(t, factors.SameGoal)
}

func TestScorer_NilProfile(t *testing.T) {
	s := NewScorer(DefaultWeights())
	score, factors := s.Score(nil, &Profile{})
	assert.Zero(t, score)
	assert.NotNil(t, factors)
}

func TestScorer_CustomWeights(t *testing.T) {
	s := NewScorer(Weights{Language: 10})
	a := &Profile{Languages: []string{"he", "he"}, JudaismDirection: "chabad"}
	b := &Profile{Languages: []string{"he"}, JudaismDirection: "chabad"}

	score, _ := s.Score(a, b)
	assert.Equal(t, 10.0, score)
}

func TestScorer_Reason(t *testing.T) {
	s := NewScorer(DefaultWeights())

	assert.Equal(t, "Batya shares your community",
		s.Reason(&CompatibilityFactors{SameDenomination: true, SameGoal: true}, &Profile{DisplayName: "Batya"}))
	assert.Equal(t, "This person speaks your language",
		s.Reason(&CompatibilityFactors{SharedLanguages: 2}, &Profile{}))
	assert.Equal(t, "Recommended for you",
		s.Reason(&CompatibilityFactors{}, &Profile{DisplayName: "X"}))
}
