package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clawdx/internal/db"
	"clawdx/internal/models"
	"clawdx/internal/persona"
)

func newSeedCommand(a *app) *cobra.Command {
	var (
		random   int
		fakeSeed int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the persona roster agents and optional random agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if random < 0 {
				return fmt.Errorf("--random must not be negative")
			}
			catalog, err := persona.Default()
			if err != nil {
				return err
			}
			database, err := a.openDB(true)
			if err != nil {
				return err
			}
			defer database.Close()

			agents := catalog.Agents()
			agents = append(agents, randomAgents(gofakeit.New(fakeSeed), catalog, random)...)
			created, err := db.SeedAgents(cmd.Context(), database, agents)
			if err != nil {
				return err
			}
			a.log.Info("seeded agents", zap.Int("requested", len(agents)), zap.Int("created", created))
			return a.print(map[string]any{
				"requested": len(agents),
				"created":   created,
			})
		},
	}
	cmd.Flags().IntVar(&random, "random", 0, "number of random agents to add")
	cmd.Flags().Int64Var(&fakeSeed, "fake-seed", 0, "seed for random agent data (0 picks one)")
	return cmd
}

var nonName = regexp.MustCompile(`[^a-z0-9_]+`)

// randomAgents builds n agents with generated names, interests drawn from
// the roster and tiers split 10% high, 70% medium, 20% low.
func randomAgents(faker *gofakeit.Faker, catalog *persona.Catalog, n int) []models.NewAgent {
	var pool []string
	seen := map[string]bool{}
	for _, g := range catalog.Groups() {
		for _, interest := range g.Interests {
			if !seen[interest] {
				seen[interest] = true
				pool = append(pool, interest)
			}
		}
	}

	taken := map[string]bool{}
	out := make([]models.NewAgent, 0, n)
	for len(out) < n {
		name := nonName.ReplaceAllString(strings.ToLower(faker.Username()), "")
		if name == "" || taken[name] {
			continue
		}
		taken[name] = true

		var interests []string
		if len(pool) > 0 {
			shuffled := append([]string(nil), pool...)
			faker.ShuffleStrings(shuffled)
			interests = shuffled[:faker.Number(1, min(3, len(pool)))]
		}

		level := models.ActivityMedium
		switch r := faker.Float64(); {
		case r < 0.1:
			level = models.ActivityHigh
		case r >= 0.8:
			level = models.ActivityLow
		}

		out = append(out, models.NewAgent{
			Name:          name,
			DisplayName:   faker.Name(),
			Description:   faker.Sentence(8),
			Interests:     interests,
			ActivityLevel: level,
			Autonomous:    true,
		})
	}
	return out
}
