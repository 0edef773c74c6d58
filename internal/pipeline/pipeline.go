// Package pipeline turns a reference image, a query image and a black-box
// descriptor source into a similarity saliency map over the query image.
package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/tensorplex-labs/simsal/internal/descriptor"
	"github.com/tensorplex-labs/simsal/internal/imaging"
	"github.com/tensorplex-labs/simsal/internal/metrics"
	"github.com/tensorplex-labs/simsal/internal/perturb"
	"github.com/tensorplex-labs/simsal/internal/saliency"
	"github.com/tensorplex-labs/simsal/internal/utils/logger"
)

var (
	ErrEmptyMaskSet   = errors.New("perturber returned an empty mask set")
	ErrInvalidThreads = errors.New("thread count must not be negative")

	// ErrDescriptorCountMismatch is descriptor.ErrCountMismatch, so either
	// name matches with errors.Is.
	ErrDescriptorCountMismatch = descriptor.ErrCountMismatch
)

// Compositor produces one occluded copy of img per mask.
type Compositor func(img *imaging.Image, masks *saliency.MaskSet, fill imaging.Fill) ([]*imaging.Image, error)

// PerturbationOcclusion holds the fixed configuration of a saliency run.
// It keeps no state between calls to Run and may be shared by goroutines.
type PerturbationOcclusion struct {
	perturber  perturb.Perturber
	generator  saliency.DescriptorSimilaritySaliency
	fill       imaging.Fill
	threads    int
	compositor Compositor
	metrics    *metrics.Metrics
}

type Option func(*PerturbationOcclusion)

// WithFill sets the occlusion fill. nil lets the compositor derive one.
func WithFill(fill imaging.Fill) Option {
	return func(p *PerturbationOcclusion) {
		p.fill = fill
	}
}

// WithThreads bounds the number of concurrent describe calls. 0 and 1
// stream the whole batch through the source in a single pass.
func WithThreads(threads int) Option {
	return func(p *PerturbationOcclusion) {
		p.threads = threads
	}
}

func WithCompositor(c Compositor) Option {
	return func(p *PerturbationOcclusion) {
		p.compositor = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *PerturbationOcclusion) {
		p.metrics = m
	}
}

func NewPerturbationOcclusion(
	perturber perturb.Perturber,
	generator saliency.DescriptorSimilaritySaliency,
	opts ...Option,
) (*PerturbationOcclusion, error) {
	if perturber == nil {
		return nil, errors.New("perturber cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("saliency generator cannot be nil")
	}

	p := &PerturbationOcclusion{
		perturber:  perturber,
		generator:  generator,
		compositor: imaging.OccludeImageBatch,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.threads < 0 {
		return nil, errors.Wrapf(ErrInvalidThreads, "got %d", p.threads)
	}
	if p.compositor == nil {
		return nil, errors.New("compositor cannot be nil")
	}

	return p, nil
}

func (p *PerturbationOcclusion) Threads() int {
	return p.threads
}

func (p *PerturbationOcclusion) Fill() imaging.Fill {
	return p.fill
}

func (p *PerturbationOcclusion) Perturber() perturb.Perturber {
	return p.perturber
}

func (p *PerturbationOcclusion) Generator() saliency.DescriptorSimilaritySaliency {
	return p.generator
}

// Run perturbs query, describes [ref, query, occluded...] through src and
// scores the result. The returned map has the query image's height and
// width.
func (p *PerturbationOcclusion) Run(ctx context.Context, ref, query *imaging.Image, src descriptor.Generator) (sal *mat.Dense, err error) {
	defer func() { p.metrics.RunFinished(err) }()

	if src == nil {
		return nil, errors.New("descriptor source cannot be nil")
	}
	runStart := time.Now()

	stageStart := time.Now()
	masks, err := p.perturber.Perturb(query)
	if err != nil {
		return nil, errors.Wrap(err, "perturb query image")
	}
	if masks == nil || masks.Count == 0 {
		return nil, ErrEmptyMaskSet
	}
	p.metrics.ObserveStage(metrics.StagePerturb, stageStart)

	stageStart = time.Now()
	occluded, err := p.compositor(query, masks, p.fill)
	if err != nil {
		return nil, errors.Wrap(err, "occlude query image")
	}
	if len(occluded) != masks.Count {
		return nil, errors.Wrapf(imaging.ErrShapeMismatch, "compositor returned %d images for %d masks", len(occluded), masks.Count)
	}
	p.metrics.ObserveStage(metrics.StageOcclude, stageStart)

	batch := make([]*imaging.Image, 0, len(occluded)+2)
	batch = append(batch, ref, query)
	batch = append(batch, occluded...)

	stageStart = time.Now()
	var descrs [][]float64
	if p.threads > 1 {
		descrs, err = describeParallel(ctx, src, batch, p.threads)
	} else {
		descrs, err = describeSequential(ctx, src, batch)
	}
	if err != nil {
		return nil, err
	}
	p.metrics.AddDescriptors(len(descrs))
	p.metrics.ObserveStage(metrics.StageDescribe, stageStart)

	perturbed, err := stackDescriptors(descrs[2:], len(descrs[0]))
	if err != nil {
		return nil, err
	}

	stageStart = time.Now()
	sal, err = p.generator.Generate(descrs[0], descrs[1], perturbed, masks)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage(metrics.StageScore, stageStart)

	log.Debug().
		Int("masks", masks.Count).
		Int("features", len(descrs[0])).
		Int("threads", p.threads).
		Dur("elapsed", time.Since(runStart)).
		Msg("saliency pipeline finished")
	logger.Sugar().Infow("Generated saliency map",
		"height", masks.Height,
		"width", masks.Width,
		"masks", masks.Count,
		"elapsed", time.Since(runStart))

	return sal, nil
}

// describeSequential consumes one pass of src over batch.
func describeSequential(ctx context.Context, src descriptor.Generator, batch []*imaging.Image) ([][]float64, error) {
	out := make([][]float64, 0, len(batch))

	for descr, err := range src.GenerateArrays(ctx, descriptor.Images(batch...)) {
		if err != nil {
			return nil, errors.Wrapf(err, "describe image %d", len(out))
		}
		if len(out) == len(batch) {
			return nil, errors.Wrapf(ErrDescriptorCountMismatch, "source yielded more than %d descriptors", len(batch))
		}
		out = append(out, descr)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(batch) {
		return nil, errors.Wrapf(ErrDescriptorCountMismatch, "%d descriptors for %d images", len(out), len(batch))
	}
	return out, nil
}

// describeParallel describes each image with its own call to src, at most
// threads at a time. Results land in their batch slot regardless of
// completion order.
func describeParallel(ctx context.Context, src descriptor.Generator, batch []*imaging.Image, threads int) ([][]float64, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	out := make([][]float64, len(batch))
	errs := make([]error, len(batch))

	for i, img := range batch {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			descr, err := descriptor.DescribeOne(gctx, src, img)
			if err != nil {
				errs[i] = err
				return err
			}
			out[i] = descr
			return nil
		})
	}
	_ = g.Wait()

	// report the lowest-index failure that is not a knock-on cancellation
	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		wrapped := errors.Wrapf(err, "describe image %d", i)
		if !errors.Is(err, context.Canceled) {
			return nil, wrapped
		}
		if first == nil {
			first = wrapped
		}
	}
	if first != nil {
		return nil, first
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// stackDescriptors packs the perturbed descriptors into an nMasks x nFeats
// matrix.
func stackDescriptors(descrs [][]float64, nFeats int) (*mat.Dense, error) {
	if nFeats == 0 {
		return nil, errors.Wrap(saliency.ErrFeatureLengthMismatch, "reference descriptor is empty")
	}

	data := make([]float64, 0, len(descrs)*nFeats)
	for i, d := range descrs {
		if len(d) != nFeats {
			return nil, errors.Wrapf(saliency.ErrFeatureLengthMismatch,
				"perturbed descriptor %d has %d features, reference has %d", i, len(d), nFeats)
		}
		data = append(data, d...)
	}

	return mat.NewDense(len(descrs), nFeats, data), nil
}
