package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio/device"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/config"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay/redisrelay"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay/wsrelay"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/signaling"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/signaling/pionpeer"
)

func (a *app) openRelay(ctx context.Context) (relay.Relay, error) {
	rc := relay.Config{Logger: a.log, Metrics: a.metrics}
	switch a.cfg.Relay.Kind {
	case config.RelayRedis:
		r, err := redisrelay.New(ctx, redisrelay.Params{
			URL:    a.cfg.Relay.RedisURL,
			Prefix: a.cfg.Relay.Prefix,
			Relay:  rc,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.RelayWebsocket:
		c, err := wsrelay.Dial(ctx, wsrelay.ClientConfig{URL: a.cfg.Relay.URL, Relay: rc})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown relay kind [%s]", a.cfg.Relay.Kind)
}

// runPeer joins a person-to-person call. The caller creates the call id and
// shares it, the callee joins with -call-id. ctrl-c hangs up.
func (a *app) runPeer(ctx context.Context) error {
	role, err := a.args.Role()
	if err != nil {
		return err
	}
	callID := a.args.callID
	if callID == "" {
		if role == signaling.RoleCallee {
			return errors.New("callee requires -call-id")
		}
		callID = proto.CallID()
	}

	r, err := a.openRelay(ctx)
	if err != nil {
		return err
	}

	factory := pionpeer.NewFactory(pionpeer.Config{
		ICEServers: a.cfg.ICEServers,
		Logger:     a.log,
	}, &device.System{Logger: a.log})

	call := signaling.NewCall(callID, role, r, factory,
		signaling.WithLogger(a.log),
		signaling.WithMetrics(a.metrics),
		signaling.WithDebug(a.args.debug),
		signaling.WithObserver(signaling.Observer{
			OnStateChange: func(state signaling.State) {
				fmt.Printf("[peer] %s\n", state)
			},
		}),
	)

	hangups := make(chan os.Signal, 1)
	signal.Notify(hangups, syscall.SIGINT)
	defer signal.Stop(hangups)

	if err := call.Start(ctx); err != nil {
		return err
	}
	if role == signaling.RoleCaller {
		fmt.Printf("calling, share this call id: %s\n", callID)
	}

	select {
	case <-call.Done():
	case <-hangups:
		call.Hangup()
	case <-ctx.Done():
		call.Hangup()
	}
	fmt.Printf("peer call %s ended: %s\n", callID, call.Reason())
	return nil
}
