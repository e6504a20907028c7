package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/suPer8Hu/model-gateway/internal/ai"
	"github.com/suPer8Hu/model-gateway/internal/pricing"
	"github.com/suPer8Hu/model-gateway/internal/usage"
)

// ErrInvalidArgument is returned for malformed requests before any
// provider or store is touched.
var ErrInvalidArgument = errors.New("invalid argument")

type Service struct {
	router *ai.Router
	prices *pricing.Table
	usage  *usage.Service
}

func NewService(router *ai.Router, prices *pricing.Table, usageSvc *usage.Service) *Service {
	return &Service{router: router, prices: prices, usage: usageSvc}
}

// Handle runs one chat request through the pipeline:
// validate -> rate check -> route -> execute -> cost -> record -> return.
// Every stage failure is terminal for the request; nothing retries. A
// usage-recording failure after a successful provider call is logged and
// swallowed so the already-delivered response is never discarded.
func (s *Service) Handle(ctx context.Context, userID uint64, req ai.Request) (*ai.Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if err := s.usage.CheckAndAdmit(ctx, userID); err != nil {
		return nil, err
	}

	provider, err := s.router.Route(req.Model)
	if err != nil {
		return nil, err
	}

	res, err := provider.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	cost, err := s.prices.Cost(req.Model, res.InputTokens, res.OutputTokens)
	if err != nil {
		return nil, err
	}

	if err := s.usage.RecordUsage(ctx, userID, req.Model, res.InputTokens, res.OutputTokens, cost); err != nil {
		log.Printf("chat: record usage failed user=%d model=%s err=%v", userID, req.Model, err)
	}

	return res, nil
}

func validate(req ai.Request) error {
	if strings.TrimSpace(req.Model) == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidArgument)
	}
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", ErrInvalidArgument)
	}
	for i, m := range req.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("%w: messages[%d]: role must be user or assistant", ErrInvalidArgument, i)
		}
	}
	return nil
}
