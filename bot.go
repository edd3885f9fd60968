package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"snakeball-backend/client"
	"snakeball-backend/constants"
	"snakeball-backend/logging"
	"snakeball-backend/models"
	"snakeball-backend/protocol"
)

const (
	botSteerEvery  = 400 * time.Millisecond
	botReportEvery = time.Second
)

var botDirections = []constants.Direction{constants.UP, constants.DOWN, constants.LEFT, constants.RIGHT}

func botAction(c *cli.Context) error {
	setupLogging(c)

	name := c.String("name")
	if name == "" {
		name = botName()
	}
	logger := logging.For("bot").With().Str("username", name).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := strings.TrimRight(c.String("server"), "/")
	token, err := client.Login(ctx, server, name)
	if err != nil {
		return err
	}
	conn, err := client.Dial(ctx, "ws"+strings.TrimPrefix(server, "http")+"/ws", token)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		if err := conn.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("connection lost")
		}
		stop()
	}()

	b := &bot{conn: conn, log: logger, room: c.String("room"), mode: c.String("mode")}
	return b.play(ctx)
}

func botName() string {
	name := "bot_" + petname.Name()
	if len(name) > 16 {
		name = name[:16]
	}
	return name
}

type bot struct {
	conn    *client.Client
	log     zerolog.Logger
	room    string
	mode    string
	playing bool
}

func (b *bot) play(ctx context.Context) error {
	steer := time.NewTicker(botSteerEvery)
	defer steer.Stop()
	report := time.NewTicker(botReportEvery)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-b.conn.Events():
			if !ok {
				return nil
			}
			if err := b.handle(env); err != nil {
				return err
			}
		case <-steer.C:
			if b.playing {
				dir := botDirections[rand.Intn(len(botDirections))]
				b.conn.Send(constants.MSG_DIRECTION_CHANGE, protocol.DirectionChange{Direction: string(dir)})
			}
		case <-report.C:
			if snap, interpolated, ok := b.conn.Buffer.RenderNow(time.Now()); ok && b.playing {
				b.log.Info().
					Float64("ballX", snap.Ball.X).
					Float64("ballY", snap.Ball.Y).
					Bool("interpolated", interpolated).
					Int("timeLeft", snap.TimeLeft).
					Msg("render")
			}
		}
	}
}

func (b *bot) handle(env protocol.Envelope) error {
	switch env.Type {
	case constants.MSG_CONNECTED:
		if b.room != "" {
			return b.conn.Send(constants.MSG_JOIN_ROOM, protocol.JoinRoom{RoomID: b.room})
		}
		return b.conn.Send(constants.MSG_CREATE_ROOM, protocol.CreateRoom{Mode: b.mode})
	case constants.MSG_JOINED_ROOM:
		joined, err := protocol.DecodePayload[protocol.JoinedRoom](env)
		if err != nil {
			return err
		}
		b.log.Info().Str("room", joined.Room.ID).Str("team", string(joined.Team)).Msg("joined room")
		return b.conn.Send(constants.MSG_PLAYER_READY, nil)
	case constants.MSG_GAME_START:
		b.playing = true
	case constants.MSG_GAME_OVER:
		b.playing = false
		res, err := protocol.DecodePayload[models.MatchResult](env)
		if err != nil {
			return err
		}
		b.log.Info().Str("winner", res.Winner).Str("reason", res.Reason).Msg("match over")
		return b.conn.Send(constants.MSG_PLAYER_READY, nil)
	case constants.MSG_ERROR:
		e, _ := protocol.DecodePayload[protocol.Error](env)
		return errors.Errorf("server refused: %s %s", e.Code, e.Message)
	}
	return nil
}
