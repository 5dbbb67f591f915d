package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	lovecall "github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio/device"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/engagement"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/tools"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/transport/direct"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/transport/gemini"
)

const defaultPersona = "You are the user's partner on a phone call. Be warm and playful and keep your replies short."

// runPartner calls the partner. With -wait it then idles on the engagement
// clock and answers whenever the partner calls back, until interrupted.
//
// During a call ctrl-c hangs up normally and ctrl-\ hangs up abruptly.
func (a *app) runPartner(ctx context.Context) error {
	dialer, err := a.partnerDialer(ctx)
	if err != nil {
		return err
	}

	rings := make(chan engagement.Trigger, 1)
	clock := engagement.NewClock(
		engagement.WithLogger(a.log),
		engagement.WithMetrics(a.metrics),
		engagement.WithIntensity(a.cfg.Engagement.Intensity),
		engagement.WithScore(a.cfg.Engagement.Score),
		engagement.WithInterval(a.cfg.Engagement.Interval),
		engagement.WithOnTrigger(func(t engagement.Trigger) {
			select {
			case rings <- t:
			default:
			}
		}),
	)
	clockCtx, stopClock := context.WithCancel(ctx)
	defer stopClock()
	go func() { _ = clock.Run(clockCtx) }()

	hangups := make(chan os.Signal, 1)
	signal.Notify(hangups, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(hangups)

	devices := &device.System{Logger: a.log}
	persona := a.cfg.Persona
	if persona == "" {
		persona = defaultPersona
	}

	reason := ""
	for {
		clock.CallStarted()
		report, err := a.partnerCall(ctx, dialer, devices, withCallReason(persona, reason), hangups)
		clock.CallEnded(report)
		if err != nil {
			return err
		}
		a.printReport(report, clock)

		if !a.args.wait || ctx.Err() != nil {
			return nil
		}

		fmt.Println("waiting for the partner to call, ctrl-c to quit")
		select {
		case t := <-rings:
			fmt.Printf("incoming call (%s): %s\n", t.Kind, t.Reason)
			reason = t.Reason
		case <-hangups:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *app) partnerDialer(ctx context.Context) (lovecall.Dialer, error) {
	if !a.args.offline {
		d, err := gemini.NewDialer(ctx, gemini.Config{
			APIKey: a.cfg.Gemini.APIKey,
			Model:  a.cfg.Gemini.Model,
			Logger: a.log,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	// a direct model serves a single connection
	return lovecall.DialerFunc(func(ctx context.Context, config lovecall.CallConfig) (lovecall.Conn, error) {
		d, model := direct.New()
		go model.Echo()
		return d.Dial(ctx, config)
	}), nil
}

func withCallReason(persona, reason string) string {
	if reason == "" {
		return persona
	}
	return persona + "\n\nYou are the one calling. The reason you called: " + reason
}

func (a *app) partnerCall(ctx context.Context, dialer lovecall.Dialer, devices lovecall.Devices, persona string, hangups <-chan os.Signal) (lovecall.TerminationReport, error) {
	var opts []lovecall.Option
	if a.args.camera != "" {
		opts = append(opts, lovecall.WithCamera(fileCamera(a.args.camera)))
	}

	s := lovecall.NewSession(append(opts,
		lovecall.WithUserID(a.cfg.UserID),
		lovecall.WithLogger(a.log),
		lovecall.WithDialer(dialer),
		lovecall.WithDevices(devices),
		lovecall.WithOutbox(a.outbox),
		lovecall.WithMetrics(a.metrics),
		lovecall.WithSnapshotInterval(a.cfg.Snapshot),
		lovecall.WithDebug(a.args.debug),
		lovecall.WithObserver(lovecall.Observer{
			OnStateChange: func(state lovecall.State) {
				fmt.Printf("[call] %s\n", state)
			},
			OnGesture: func(g tools.Gesture) {
				if g != "" {
					fmt.Printf("[gesture] %s\n", g)
				}
			},
			OnToolResults: func(results []*proto.ToolResult) {
				for _, r := range results {
					a.log.Debug("tool result", slog.String("id", r.ID), slog.String("name", r.Name))
				}
			},
		}),
	)...)

	if err := s.Start(ctx, lovecall.CallConfig{Persona: persona, Voice: a.cfg.Voice}); err != nil {
		return s.Report(), err
	}

	select {
	case <-s.Done():
		return s.Report(), nil
	case sig := <-hangups:
		if sig == syscall.SIGQUIT {
			return s.End(lovecall.ReasonHangupAbrupt), nil
		}
		return s.End(lovecall.ReasonHangupNormal), nil
	case <-ctx.Done():
		return s.End(lovecall.ReasonHangupAbrupt), nil
	}
}

func (a *app) printReport(r lovecall.TerminationReport, clock *engagement.Clock) {
	fmt.Printf("call %s ended: %s after %s\n", r.SessionID, r.Reason, r.Duration().Round(time.Second))
	if r.Err != nil {
		fmt.Printf("  error: %v\n", r.Err)
	}
	fmt.Printf("  relationship score: %.1f\n", clock.Score())
	if sc := clock.Scheduled(); sc != nil {
		fmt.Printf("  callback at %s: %s\n", sc.TriggerAt.Format("15:04:05"), sc.Reason)
	}
}
