package dating

import (
	"context"
	"fmt"
	"time"
)

// SeedDemo loads a small population for local development.
func SeedDemo(ctx context.Context, store ProfileStore) error {
	now := time.Now().UTC()
	born := func(age int) time.Time { return now.AddDate(-age, -1, 0) }

	profiles := []*Profile{
		{UserID: "demo-avi", DisplayName: "Avi", BirthDate: born(29), Gender: "male", Country: "IL", City: "Jerusalem",
			Languages: []string{"he", "en"}, JudaismDirection: "chabad", KashrutLevel: "strict", ShabbatLevel: "shomer", Goal: GoalMarriage, HasPhoto: true},
		{UserID: "demo-batya", DisplayName: "Batya", BirthDate: born(27), Gender: "female", Country: "IL", City: "Jerusalem",
			Languages: []string{"he"}, JudaismDirection: "chabad", KashrutLevel: "strict", ShabbatLevel: "shomer", Goal: GoalMarriage, HasPhoto: true},
		{UserID: "demo-chana", DisplayName: "Chana", BirthDate: born(31), Gender: "female", Country: "US", City: "New York",
			Languages: []string{"en"}, JudaismDirection: "modern-orthodox", KashrutLevel: "kosher-home", ShabbatLevel: "traditional", Goal: GoalSerious, HasPhoto: true},
		{UserID: "demo-dina", DisplayName: "Dina", BirthDate: born(25), Gender: "female", Country: "FR", City: "Paris",
			Languages: []string{"fr"}, JudaismDirection: "reform", Goal: GoalFriendship},
		{UserID: "demo-eli", DisplayName: "Eli", BirthDate: born(34), Gender: "male", Country: "IL", City: "Haifa",
			Languages: []string{"he", "ru"}, JudaismDirection: "traditional", KashrutLevel: "kosher-home", Goal: GoalSerious, HasPhoto: true},
	}

	for i, p := range profiles {
		p.UpdatedAt = now.Add(-time.Duration(i) * time.Hour)
		if err := store.UpsertProfile(ctx, p); err != nil {
			return fmt.Errorf("seed profile %s: %w", p.UserID, err)
		}
	}

	prefs := []*Preferences{
		{UserID: "demo-avi", AgeMin: 21, AgeMax: 35, Goals: []Goal{GoalMarriage, GoalSerious}},
		{UserID: "demo-batya", AgeMin: 24, AgeMax: 38, Denominations: []string{"chabad"}},
	}
	for _, p := range prefs {
		if err := store.UpsertPreferences(ctx, p); err != nil {
			return fmt.Errorf("seed preferences %s: %w", p.UserID, err)
		}
	}
	return nil
}
