package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tablewise/concierge/agent/agents/orchestrator"
	specialistx "github.com/tablewise/concierge/agent/agents/specialist"
	contractx "github.com/tablewise/concierge/agent/contract"
	llmx "github.com/tablewise/concierge/agent/llm"
	statex "github.com/tablewise/concierge/agent/state"
	datastorex "github.com/tablewise/concierge/datastore"
	configx "github.com/tablewise/concierge/pkg/config"
	_ "github.com/tablewise/concierge/pkg/logger/autoload"
	openrouterx "github.com/tablewise/concierge/pkg/openrouter"
)

type AppConfig struct {
	RestaurantID string `envconfig:"RESTAURANT_ID" required:"true"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	// Raw client doubles as an early credentials check.
	if openrouterx.NewClient(llmCfg.OpenRouterFor(contractx.AgentInfo)) == nil {
		log.Fatal().Msg("openrouter credentials missing")
	}

	redisCfg := configx.MustNew[statex.RedisConfig]("REDIS")
	sessions, err := statex.NewRedisStore(*redisCfg, statex.WithTTL(redisCfg.TTL))
	if err != nil {
		log.Fatal().Err(err).Msg("init session store")
	}

	dbCfg := configx.MustNew[datastorex.Config]("DATABASE")
	data, err := datastorex.NewStore(datastorex.NewDB(*dbCfg))
	if err != nil {
		log.Fatal().Err(err).Msg("init data store")
	}

	registry, err := specialistx.NewRegistry(ctx, *llmCfg, data)
	if err != nil {
		log.Fatal().Err(err).Msg("init agent registry")
	}

	orch, err := orchestratorx.New(sessions, registry, data)
	if err != nil {
		log.Fatal().Err(err).Msg("init orchestrator")
	}

	sessionID := uuid.NewString()
	log.Info().Str("session_id", sessionID).Str("restaurant_id", appCfg.RestaurantID).Msg("concierge ready")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		result, err := orch.HandleTurn(ctx, sessionID, appCfg.RestaurantID, text)
		if err != nil {
			log.Error().Err(err).Msg("turn rejected")
			continue
		}
		if result.PreText != "" {
			fmt.Println(result.PreText)
		}
		fmt.Println(result.Text)
		if result.ReservationID != "" {
			log.Info().Str("reservation_id", result.ReservationID).Msg("reservation confirmed")
		}
	}
}
