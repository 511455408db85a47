// Package ingest consumes recognized recordings from a work queue and hands
// them to the recording service.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xpanvictor/annotator/internal/domains/recording"
	"github.com/xpanvictor/annotator/pkg/Logger"
)

// Saver is the part of recording.RecordingService the loop drives.
type Saver interface {
	SaveRecording(ctx context.Context, id int64, model string, body []byte, frameRate int, alternatives []recording.Alternative) error
	DiscardAudio(path string) error
}

// Forever is the continuation predicate of a production loop.
func Forever() bool { return true }

// Times returns a predicate that allows n iterations.
func Times(n int) func() bool {
	return func() bool {
		if n <= 0 {
			return false
		}
		n--
		return true
	}
}

// Loop is a single sequential consumer: receive, decode, save, repeat.
// Scale out by running several loops, each with its own Receiver.
type Loop struct {
	receiver       Receiver
	saver          Saver
	decode         Decoder
	policy         Policy
	deadLetter     DeadLetter
	metrics        *Metrics
	logger         *Logger.Logger
	messageTimeout time.Duration
	removeOrphans  bool
	newBackOff     func() backoff.BackOff
	now            func() time.Time
}

type Option func(*Loop)

func WithPolicy(p Policy) Option { return func(l *Loop) { l.policy = p } }

func WithDecoder(d Decoder) Option { return func(l *Loop) { l.decode = d } }

func WithDeadLetter(d DeadLetter) Option { return func(l *Loop) { l.deadLetter = d } }

func WithMetrics(m *Metrics) Option { return func(l *Loop) { l.metrics = m } }

// WithMessageTimeout bounds the save of a single message. Zero disables it.
func WithMessageTimeout(d time.Duration) Option { return func(l *Loop) { l.messageTimeout = d } }

// WithRemoveOrphans makes the loop delete the audio file of a message whose
// database write failed.
func WithRemoveOrphans(remove bool) Option { return func(l *Loop) { l.removeOrphans = remove } }

// WithReceiveRetry retries failing receives with exponential backoff for at
// most maxElapsed. Zero or less disables retries.
func WithReceiveRetry(maxElapsed time.Duration) Option {
	return func(l *Loop) {
		if maxElapsed <= 0 {
			l.newBackOff = func() backoff.BackOff { return &backoff.StopBackOff{} }
			return
		}
		l.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = maxElapsed
			return b
		}
	}
}

func NewLoop(receiver Receiver, saver Saver, logger *Logger.Logger, opts ...Option) *Loop {
	if logger == nil {
		logger = Logger.Nop()
	}
	l := &Loop{
		receiver: receiver,
		saver:    saver,
		decode:   Decode,
		policy:   DefaultPolicy,
		logger:   logger,
		now:      time.Now,
	}
	WithReceiveRetry(0)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes messages until cont returns false or ctx is cancelled, and
// returns nil in both cases. Both are checked only between messages: once a
// message has been received it is saved to completion. Run returns a
// *HaltError when the policy stops on a failed message and a *ReceiveError
// when the queue cannot be read.
func (l *Loop) Run(ctx context.Context, cont func() bool) error {
	l.logger.Info("ingestion loop started")
	defer l.logger.Info("ingestion loop stopped")

	for cont() {
		if ctx.Err() != nil {
			return nil
		}

		raw, err := l.receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := l.process(ctx, raw); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) receive(ctx context.Context) ([]byte, error) {
	raw, err := backoff.RetryNotifyWithData(func() ([]byte, error) {
		raw, err := l.receiver.Receive(ctx)
		if err != nil && (ctx.Err() != nil || errors.Is(err, ErrReceiverClosed)) {
			return nil, backoff.Permanent(err)
		}
		return raw, err
	}, backoff.WithContext(l.newBackOff(), ctx), func(err error, wait time.Duration) {
		l.logger.Warnf("queue receive failed, retrying in %v: %v", wait, err)
	})
	if err != nil {
		return nil, &ReceiveError{Err: err}
	}
	return raw, nil
}

// process handles one message. It returns an error only when the policy
// says to halt.
func (l *Loop) process(ctx context.Context, raw []byte) error {
	start := l.now()

	msg, err := l.decode(raw)
	if err != nil {
		return l.fail(ctx, raw, err, start)
	}

	// cancellation of ctx must not abort a message half way
	saveCtx := context.WithoutCancel(ctx)
	if l.messageTimeout > 0 {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(saveCtx, l.messageTimeout)
		defer cancel()
	}

	id := IDFromUUID(msg.ID)
	log := l.logger.With("recording_id", id, "model", msg.Model, "uuid", msg.ID.String())
	if err := l.saver.SaveRecording(saveCtx, id, msg.Model, msg.Body, msg.FrameRate, msg.DomainAlternatives()); err != nil {
		log.Debugf("save failed: %v", err)
		l.reconcile(err)
		return l.fail(ctx, raw, err, start)
	}

	l.metrics.observe(outcomeSaved, l.now().Sub(start))
	log.Info("recording ingested")
	return nil
}

// reconcile removes the audio file left behind by a failed database write.
func (l *Loop) reconcile(err error) {
	var pe *recording.PersistenceError
	if !l.removeOrphans || !errors.As(err, &pe) || pe.AudioPath == "" {
		return
	}
	if derr := l.saver.DiscardAudio(pe.AudioPath); derr != nil {
		l.logger.Errorf("failed to remove orphaned audio %s: %v", pe.AudioPath, derr)
	}
}

func (l *Loop) fail(ctx context.Context, raw []byte, err error, start time.Time) error {
	kind := Classify(err)
	l.metrics.observe(failureOutcome(kind), l.now().Sub(start))

	if l.policy.For(kind) == Halt {
		l.logger.Errorf("%s failure, halting: %v", kind, err)
		return &HaltError{Kind: kind, Err: err}
	}

	l.logger.Warnf("%s failure, skipping message (%d bytes): %v", kind, len(raw), err)
	if l.deadLetter != nil {
		if derr := l.deadLetter.Put(context.WithoutCancel(ctx), raw, kind, err); derr != nil {
			l.logger.Errorf("failed to dead-letter message: %v", derr)
		}
	}
	return nil
}
