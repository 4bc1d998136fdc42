package voiceservice

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/booking"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/config"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/factory"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/identity"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/notify"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/retry"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/session"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/summary"
)

// Deps is the object graph shared by every entry point.
type Deps struct {
	Cfg        *config.Config
	Log        zerolog.Logger
	Store      store.Store
	Publisher  notify.Publisher
	Ledger     *booking.Ledger
	Closer     *session.Closer
	Dispatcher *session.Dispatcher
	Policy     retry.Policy

	closers []func() error
}

// Assemble wires the domain services over already built adapters.
func Assemble(cfg *config.Config, log zerolog.Logger, st store.Store, pub notify.Publisher, summ summary.Summarizer, ledgerOpts ...booking.Option) *Deps {
	policy := retry.Policy{InitialInterval: cfg.RetryInitialInterval(), MaxRetries: 1}
	ledger := booking.NewLedger(st, policy, log, ledgerOpts...)
	closer := session.NewCloser(summ, st, pub, cfg.SummaryTimeout(), policy, log)
	disp := session.NewDispatcher(identity.NewResolver(st, policy, log), ledger, closer, pub, log)
	return &Deps{
		Cfg:        cfg,
		Log:        log,
		Store:      st,
		Publisher:  pub,
		Ledger:     ledger,
		Closer:     closer,
		Dispatcher: disp,
		Policy:     policy,
	}
}

// Build opens the configured store and publisher and assembles the services.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Deps, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, err
	}
	pub, closePub, err := factory.NewPublisher(ctx, cfg, log)
	if err != nil {
		_ = st.Close()
		log.Error().Stack().Err(err).Msg("Notification publisher unavailable")
		return nil, err
	}
	d := Assemble(cfg, log, st, pub, factory.NewSummarizer(cfg, log))
	d.closers = []func() error{closePub, st.Close}
	return d, nil
}

// Close releases the adapters opened by Build.
func (d *Deps) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	d.closers = nil
	return errors.Join(errs...)
}
