package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"HoldemTable/internal/websocket"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
)

var (
	ErrInvalidTableSize = errors.New("invalid table size")
	ErrAlreadyInRoom    = errors.New("already in room")
)

type Service struct {
	repo      Repo
	playerTTL time.Duration // queue entries expire so stale players do not fill tables
	hub       HubBroadcaster
	logger    *log.Logger
	clock     quartz.Clock

	// OnRoomReady opens the table for a filled room.
	OnRoomReady func(context.Context, *Room) error
}

type HubBroadcaster interface {
	BroadcastToPlayers(addrs []string, msg websocket.OutgoingMessage)
}

func NewService(repo Repo, playerTTL time.Duration, hub HubBroadcaster, logger *log.Logger) *Service {
	return &Service{
		repo:      repo,
		playerTTL: playerTTL,
		hub:       hub,
		logger:    logger,
		clock:     quartz.NewReal(),
	}
}

// Join queues address and, once the pool holds TableSize players, pops a random
// table's worth of them into a room. queued is true while the caller is waiting.
func (s *Service) Join(ctx context.Context, address string, req JoinRequest) (room *Room, queued bool, err error) {
	if req.TableSize <= 1 {
		return nil, false, fmt.Errorf("%w: %d", ErrInvalidTableSize, req.TableSize)
	}

	roomID, err := s.repo.PlayerRoom(ctx, address)
	if err != nil {
		return nil, false, err
	}
	if roomID != "" {
		return nil, false, fmt.Errorf("%w: %s is seated at %s", ErrAlreadyInRoom, address, roomID)
	}

	if err := s.repo.Enqueue(ctx, req.Pool, req.TableSize, address, s.playerTTL); err != nil {
		return nil, false, err
	}
	cnt, err := s.repo.Count(ctx, req.Pool, req.TableSize)
	if err != nil {
		return nil, false, err
	}
	if int(cnt) < req.TableSize {
		return nil, true, nil
	}

	addrs, err := s.repo.PopN(ctx, req.Pool, req.TableSize, req.TableSize)
	if err != nil {
		return nil, false, err
	}
	if len(addrs) < req.TableSize {
		// lost a race with another Join; put everyone back
		if err := s.requeue(ctx, req, addrs); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	room = &Room{
		ID:        uuid.NewString(),
		Pool:      req.Pool,
		TableSize: req.TableSize,
		Players:   addrs,
		CreatedAt: s.clock.Now(),
	}
	if s.OnRoomReady != nil {
		if err := s.OnRoomReady(ctx, room); err != nil {
			s.logger.Error("open table", "room", room.ID, "err", err)
			if qerr := s.requeue(ctx, req, addrs); qerr != nil {
				s.logger.Error("requeue", "room", room.ID, "err", qerr)
			}
			s.hub.BroadcastToPlayers(addrs, websocket.OutgoingMessage{
				Event: "match_failed",
				Data:  map[string]any{"pool": req.Pool, "tableSize": req.TableSize, "error": err.Error()},
			})
			return nil, false, err
		}
	}
	// only a table that exists may block its players from queueing again
	if err := s.repo.SaveRoom(ctx, room, s.playerTTL); err != nil {
		s.logger.Warn("save room", "room", room.ID, "err", err)
	}

	s.hub.BroadcastToPlayers(addrs, websocket.OutgoingMessage{
		Event: "matched",
		Data: map[string]any{
			"roomId":    room.ID,
			"pool":      room.Pool,
			"tableSize": room.TableSize,
			"players":   room.Players,
		},
	})
	s.logger.Info("room matched", "room", room.ID, "pool", room.Pool, "players", len(addrs))
	return room, false, nil
}

func (s *Service) requeue(ctx context.Context, req JoinRequest, addrs []string) error {
	for _, a := range addrs {
		if err := s.repo.Enqueue(ctx, req.Pool, req.TableSize, a, s.playerTTL); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Cancel(ctx context.Context, address string) error {
	return s.repo.Remove(ctx, address)
}
