package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/arloliu/go-lxi/block"
	"github.com/arloliu/go-lxi/config"
	"github.com/arloliu/go-lxi/imaging"
	"github.com/arloliu/go-lxi/internal/ping"
	"github.com/arloliu/go-lxi/logger"
	"github.com/arloliu/go-lxi/scpi"
	"github.com/arloliu/go-lxi/transport"
)

// timestampLayout formats the capture time in file names: YYYY-MM-DD_HH.MM.SS.
const timestampLayout = "2006-01-02_15.04.05"

// Result describes a saved capture.
type Result struct {
	Path         string
	Identity     scpi.Identity
	PayloadBytes int
}

// Capturer runs screen captures for one configuration.
type Capturer struct {
	cfg         config.Config
	dial        Dialer
	pinger      Pinger
	saver       ImageSaver
	now         func() time.Time
	logger      logger.Logger
	onEvent     func(Event)
	channelOpts []scpi.Option

	metrics *Metrics
}

// New creates a Capturer for cfg.
func New(cfg config.Config, opts ...Option) (*Capturer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Capturer{
		cfg:     cfg,
		saver:   imaging.NewFileSaver(),
		now:     time.Now,
		logger:  logger.GetLogger(),
		metrics: newMetrics(),
	}
	if cfg.Ping {
		c.pinger = ping.New(ping.DefaultTimeout)
	}

	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}

	if c.dial == nil {
		c.dial = c.dialTCP
	}

	return c, nil
}

// Metrics returns the capture counters.
func (c *Capturer) Metrics() *Metrics { return c.metrics }

// Config returns the configuration the Capturer was created with.
func (c *Capturer) Config() config.Config { return c.cfg }

// Run performs one capture and returns where the image was saved.
func (c *Capturer) Run(ctx context.Context) (Result, error) {
	res, err := c.run(ctx)
	if err != nil {
		c.metrics.CaptureErrCount.Inc()
		c.logger.Error("capture: failed", append([]any{"error", err}, c.metrics.logFields()...)...)

		return Result{}, err
	}

	c.metrics.CaptureOKCount.Inc()
	c.logger.Info("capture: saved",
		append([]any{"path", res.Path, "payloadBytes", res.PayloadBytes}, c.metrics.logFields()...)...)

	return res, nil
}

func (c *Capturer) run(ctx context.Context) (Result, error) {
	ep := c.cfg.Endpoint()

	c.probe(ctx, ep.Host)

	sess, err := c.dial(ctx, ep)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			c.logger.Warn("capture: failed to close session", "addr", ep.Addr(), "error", err)
		}
	}()

	ch, err := scpi.NewChannel(sess, c.newChannelOptions()...)
	if err != nil {
		return Result{}, err
	}

	id, err := ch.Identify(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := id.Validate(c.cfg.ExpectedManufacturer, c.cfg.ExpectedModel); err != nil {
		return Result{}, fmt.Errorf("capture: no %s found at %s: %w", c.cfg.ExpectedModel, ep.Host, err)
	}
	c.emit(Event{Kind: EventIdentified, Host: ep.Host, Identity: id})

	path := filepath.Join(c.cfg.SavePath, Filename(id, c.now(), c.cfg.Format))

	c.emit(Event{Kind: EventReceiving, Host: ep.Host, Identity: id})
	raw, err := ch.QueryBinary(ctx, scpi.CmdDisplayData)
	if err != nil {
		return Result{}, err
	}
	c.metrics.BytesReceived.Add(int64(len(raw)))

	payload, err := block.Accumulate(ctx, ch.Reader(), raw,
		block.WithReadTimeout(c.cfg.ReplyTimeout),
		block.WithLogger(c.logger),
		block.WithShortReadHook(func(_, _ int) { c.metrics.ShortReadCount.Inc() }),
		block.WithChunkHook(func(n int) { c.metrics.BytesReceived.Add(int64(n)) }),
	)
	if err != nil {
		return Result{}, err
	}

	if err := c.saver.Save(path, payload, c.cfg.Format); err != nil {
		return Result{}, err
	}
	c.emit(Event{Kind: EventSaved, Host: ep.Host, Identity: id, Path: path})

	return Result{Path: path, Identity: id, PayloadBytes: len(payload)}, nil
}

// Filename returns MODEL_SERIAL_YYYY-MM-DD_HH.MM.SS.<ext> for a capture taken at t,
// formatted in t's location.
func Filename(id scpi.Identity, t time.Time, f imaging.Format) string {
	return id.Model + "_" + id.Serial + "_" + t.Format(timestampLayout) + f.Ext()
}

func (c *Capturer) probe(ctx context.Context, host string) {
	if c.pinger == nil {
		return
	}

	if err := c.pinger.Ping(ctx, host); err != nil {
		c.logger.Warn("capture: no response pinging instrument", "host", host, "error", err)
		c.emit(Event{Kind: EventPingFailed, Host: host, Err: err})

		return
	}
	c.logger.Debug("capture: instrument answered ping", "host", host)
}

func (c *Capturer) dialTCP(ctx context.Context, ep transport.Endpoint) (Session, error) {
	sess, err := transport.Dial(ctx, ep,
		transport.WithConnectTimeout(c.cfg.ConnectTimeout),
		transport.WithLogger(c.logger),
	)
	if err != nil {
		return nil, err
	}

	return sess, nil
}

func (c *Capturer) newChannelOptions() []scpi.Option {
	opts := []scpi.Option{
		scpi.WithReplyTimeout(c.cfg.ReplyTimeout),
		scpi.WithReadyDeadline(c.cfg.ReadyDeadline),
		scpi.WithLogger(c.logger),
		scpi.WithPollHook(func() { c.metrics.ReadyPollCount.Inc() }),
		scpi.WithCommandHook(func(string) { c.metrics.CommandCount.Inc() }),
	}

	return append(opts, c.channelOpts...)
}

func (c *Capturer) emit(ev Event) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}
