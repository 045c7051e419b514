package collector

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vsphere-healthcheck/internal/model"
)

// DefaultRealtimeInterval is used when the provider does not report a
// refresh rate for its realtime counters.
const DefaultRealtimeInterval = 20 * time.Second

// RowWriter is where the sampler appends each round's rows. Satisfied by
// rowlog.Log.
type RowWriter interface {
	Append(rows []model.IopsSampleRow) error
}

// SamplerConfig controls one sampling run.
type SamplerConfig struct {
	Rounds           int
	FallbackInterval time.Duration // defaults to DefaultRealtimeInterval
}

// IopsSampler polls the per-disk realtime read/write rates over a fixed
// number of rounds, joining every sample to its cluster and backing
// datastore, and appends the rows to a durable row log. Rounds are serial:
// a realtime counter only refreshes once per provider interval, so there is
// nothing to gain from overlapping polls.
type IopsSampler struct {
	provider Provider
	sink     RowWriter
	logger   zerolog.Logger

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewIopsSampler(provider Provider, sink RowWriter, logger zerolog.Logger) *IopsSampler {
	return &IopsSampler{
		provider: provider,
		sink:     sink,
		logger:   logger,
		sleep:    sleepWithContext,
	}
}

// Run executes cfg.Rounds polling rounds and returns the number of rows
// appended. The instance set and the disk topology are re-resolved every
// round; a round that returns no samples is skipped, not fatal. An empty
// instance set on the first round aborts with ErrNoInstances.
func (s *IopsSampler) Run(ctx context.Context, cfg SamplerConfig) (int, error) {
	if cfg.Rounds <= 0 {
		return 0, nil
	}
	fallback := cfg.FallbackInterval
	if fallback <= 0 {
		fallback = DefaultRealtimeInterval
	}

	total := 0
	for round := 1; round <= cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		wait := fallback
		insts, err := s.provider.ListInstances(ctx)
		if err != nil {
			return total, err
		}
		switch {
		case len(insts) == 0 && round == 1:
			return 0, ErrNoInstances
		case len(insts) == 0:
			s.logger.Warn().Int("round", round).Msg("instance set empty, skipping round")
		default:
			appended, interval, err := s.round(ctx, round, insts)
			if err != nil {
				return total, err
			}
			total += appended
			if interval > 0 {
				wait = interval
			}
		}

		if round < cfg.Rounds {
			if err := s.sleep(ctx, wait); err != nil {
				return total, err
			}
		}
	}
	s.logger.Info().Int("rounds", cfg.Rounds).Int("rows", total).Msg("sampling finished")
	return total, nil
}

func (s *IopsSampler) round(ctx context.Context, round int, insts []model.Instance) (int, time.Duration, error) {
	res, err := s.provider.QueryRealtimeCounter(ctx, insts, []string{MetricVDiskRead, MetricVDiskWrite})
	if err != nil {
		return 0, 0, err
	}
	if len(res.Samples) == 0 {
		s.logger.Warn().Int("round", round).Msg("realtime query returned no samples, skipping round")
		return 0, res.Interval, nil
	}

	rows, err := s.buildRows(ctx, insts, res.Samples)
	if err != nil {
		return 0, res.Interval, err
	}
	if err := s.sink.Append(rows); err != nil {
		return 0, res.Interval, err
	}
	s.logger.Debug().Int("round", round).Int("rows", len(rows)).Msg("round appended")
	return len(rows), res.Interval, nil
}

type diskKey struct {
	vm   string
	disk string
}

// buildRows pairs the read/write samples per (vm, device) and resolves the
// cluster and datastore joins. The disk topology is rebuilt each round
// because it is not assumed static across a run.
func (s *IopsSampler) buildRows(ctx context.Context, insts []model.Instance, samples []RealtimeSample) ([]model.IopsSampleRow, error) {
	disks, err := s.provider.ListVirtualDisks(ctx, insts)
	if err != nil {
		return nil, err
	}
	datastores := make(map[diskKey]string, len(disks))
	for _, d := range disks {
		datastores[diskKey{vm: d.VM, disk: d.BusAddress}] = d.Datastore
	}

	clusters := make(map[string]string, len(insts))
	for _, inst := range insts {
		cluster, err := s.provider.GetCluster(ctx, inst)
		if err != nil {
			return nil, err
		}
		clusters[inst.Name] = cluster
	}

	var order []diskKey
	rows := make(map[diskKey]*model.IopsSampleRow, len(samples))
	for _, sample := range samples {
		key := diskKey{vm: sample.VM, disk: sample.Instance}
		row, ok := rows[key]
		if !ok {
			row = &model.IopsSampleRow{
				Timestamp: sample.Timestamp,
				Cluster:   clusters[sample.VM],
				VM:        sample.VM,
				Disk:      sample.Instance,
				Datastore: datastores[key],
			}
			rows[key] = row
			order = append(order, key)
		}
		switch sample.Metric {
		case MetricVDiskRead:
			row.ReadIOPS = sample.Value
		case MetricVDiskWrite:
			row.WriteIOPS = sample.Value
		}
	}

	out := make([]model.IopsSampleRow, 0, len(order))
	for _, key := range order {
		out = append(out, *rows[key])
	}
	return out, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
