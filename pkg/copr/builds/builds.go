package builds

import (
	"context"
	"iter"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/coprcheck/coprcheck/pkg/chroot"
	"github.com/coprcheck/coprcheck/pkg/copr/api"
	"github.com/coprcheck/coprcheck/pkg/types"
)

const statusSucceeded = "succeeded"

// Source is the part of the COPR API the pipeline needs. *api.Client implements it.
type Source interface {
	Monitor(ctx context.Context, user, project string) (*api.Monitor, error)
	Build(ctx context.Context, buildID int) (*api.BuildDetail, error)
}

type options struct {
	concurrency int
}

type Option interface {
	apply(*options)
}

type concurrencyOption int

func (o concurrencyOption) apply(opts *options) {
	opts.concurrency = int(o)
}

// WithConcurrency sets how many build details are requested at once. 1 (the default) keeps the
// sequence lazy: each artifact pulled costs only the requests needed to produce it.
func WithConcurrency(concurrency int) Option {
	return concurrencyOption(concurrency)
}

// Current yields every succeeded build task of the current builds of user/project, in the order the
// builds first appear in the project monitor and then in build task order. The first error is
// yielded and ends the sequence.
func Current(ctx context.Context, src Source, user, project string, opts ...Option) iter.Seq2[types.BuildArtifact, error] {
	options := &options{
		concurrency: 1,
	}
	for _, o := range opts {
		o.apply(options)
	}

	return func(yield func(types.BuildArtifact, error) bool) {
		m, err := src.Monitor(ctx, user, project)
		if err != nil {
			yield(types.BuildArtifact{}, errors.Wrapf(err, "monitor %s/%s", user, project))
			return
		}

		ids := succeededBuildIDs(m)
		slog.Debug("Succeeded builds", "project", user+"/"+project, "ids", ids)

		if options.concurrency > 1 {
			details, err := fetchAll(ctx, src, ids, options.concurrency)
			if err != nil {
				yield(types.BuildArtifact{}, err)
				return
			}
			for _, d := range details {
				if !yieldArtifacts(d, yield) {
					return
				}
			}
			return
		}

		for _, id := range ids {
			d, err := src.Build(ctx, id)
			if err != nil {
				yield(types.BuildArtifact{}, errors.Wrapf(err, "build %d", id))
				return
			}
			if !yieldArtifacts(d, yield) {
				return
			}
		}
	}
}

// Collect drains seq, stopping at the first error.
func Collect(seq iter.Seq2[types.BuildArtifact, error]) ([]types.BuildArtifact, error) {
	var bs []types.BuildArtifact
	for b, err := range seq {
		if err != nil {
			return nil, errors.WithStack(err)
		}
		bs = append(bs, b)
	}
	return bs, nil
}

// succeededBuildIDs returns the unique ids of succeeded builds in first-seen order. The monitor's
// chroot only says that a build ran there; the authoritative chroots come from the build tasks.
func succeededBuildIDs(m *api.Monitor) []int {
	var ids []int
	seen := make(map[int]struct{})
	for _, p := range m.Packages {
		for _, r := range p.Results {
			if r.Result == nil || r.Result.Status != statusSucceeded {
				continue
			}
			if _, ok := seen[r.Result.BuildID]; ok {
				continue
			}
			seen[r.Result.BuildID] = struct{}{}
			ids = append(ids, r.Result.BuildID)
		}
	}
	return ids
}

func yieldArtifacts(d *api.BuildDetail, yield func(types.BuildArtifact, error) bool) bool {
	for _, t := range d.Tasks {
		if t == nil || t.BuildTask == nil || t.BuildTask.State != statusSucceeded {
			continue
		}

		c, err := chroot.Parse(t.BuildTask.ChrootName)
		if err != nil {
			yield(types.BuildArtifact{}, errors.Wrapf(err, "build %d", t.BuildTask.BuildID))
			return false
		}

		if !yield(types.BuildArtifact{
			BuildID: t.BuildTask.BuildID,
			Chroot:  c,
			URL:     t.BuildTask.ResultDirURL,
		}, nil) {
			return false
		}
	}
	return true
}

// fetchAll requests the details of ids with at most concurrency requests in flight. The first error
// cancels the requests that have not started yet.
func fetchAll(ctx context.Context, src Source, ids []int, concurrency int) ([]*api.BuildDetail, error) {
	details := make([]*api.BuildDetail, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := src.Build(ctx, id)
			if err != nil {
				return errors.Wrapf(err, "build %d", id)
			}
			details[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return details, nil
}
