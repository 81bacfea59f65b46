package process

// scan every category, re-encode the photos in parallel, assign ids in scan order and write the manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sfomuseum/go-photos-manifest/common"
	"github.com/sfomuseum/go-photos-manifest/config"
	"github.com/sfomuseum/go-photos-manifest/manifest"
	"github.com/sfomuseum/go-photos-manifest/media"
	"github.com/sfomuseum/go-photos-manifest/metrics"
	"github.com/sfomuseum/go-photos-manifest/naming"
	"github.com/sfomuseum/go-photos-manifest/operations/encode"
	"github.com/sfomuseum/go-photos-manifest/operations/gather"
	"github.com/sfomuseum/go-photos-manifest/operations/remove"
	"github.com/sfomuseum/go-photos-manifest/operations/stage"
	"gocloud.dev/blob"
	"golang.org/x/sync/errgroup"
)

const (
	thumbnailLabel = "thumbnail"
	fullLabel      = "full"
)

// ProcessOptions is a struct containing the options for a Processor.
type ProcessOptions struct {
	Config *config.Config
	// Optional run metrics.
	Metrics *metrics.Metrics
	// Optional logger. Defaults to slog.Default().
	Logger *slog.Logger
	// An already opened source bucket to use instead of opening Config.Source. It is not closed by the Processor.
	SourceBucket *blob.Bucket
	// An already opened asset bucket to use instead of opening Config.Assets. It is not closed by the Processor.
	AssetsBucket *blob.Bucket
	// Copy each source image to a local staging directory before reading it. Sources that
	// are not local paths are always staged.
	StageSource bool
}

// Processor runs the complete scan, re-encode and assemble cycle described by a config.Config.
type Processor struct {
	config    *config.Config
	metrics   *metrics.Metrics
	logger    *slog.Logger
	timeout   time.Duration
	thumbnail encode.Envelope
	full      encode.Envelope
	source    *blob.Bucket
	assets    *blob.Bucket
	stage     bool
}

// Skipped describes a photo that was left out of the manifest.
type Skipped struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Error    string `json:"error"`
}

// Report describes the outcome of a run.
type Report struct {
	Manifest     string            `json:"manifest"`
	Summary      *manifest.Summary `json:"summary"`
	Skipped      []*Skipped        `json:"skipped"`
	Removed      int64             `json:"removed"`
	BytesWritten int64             `json:"bytes_written"`
	Duration     time.Duration     `json:"duration"`
}

type job struct {
	seq      int
	asset    *gather.SourceAsset
	category *config.Category
}

type result struct {
	job      *job
	photo    *media.Photo
	variants []*encode.Variant
	reason   string
	err      error
}

type run struct {
	source  *blob.Bucket
	assets  *blob.Bucket
	staging *blob.Bucket
	removal *remove.Removal
	report  *Report
}

func NewProcessor(opts *ProcessOptions) (*Processor, error) {

	cfg := opts.Config

	if cfg == nil {
		return nil, errors.New("Missing config")
	}

	err := cfg.Validate()

	if err != nil {
		return nil, fmt.Errorf("Invalid config, %w", err)
	}

	timeout, err := cfg.ProcessTimeout()

	if err != nil {
		return nil, err
	}

	logger := opts.Logger

	if logger == nil {
		logger = slog.Default()
	}

	p := &Processor{
		config:    cfg,
		metrics:   opts.Metrics,
		logger:    logger,
		timeout:   timeout,
		thumbnail: envelope(thumbnailLabel, cfg.Thumbnail),
		full:      envelope(fullLabel, cfg.Full),
		source:    opts.SourceBucket,
		assets:    opts.AssetsBucket,
		stage:     opts.StageSource || !common.IsLocal(cfg.Source),
	}

	return p, nil
}

// Run processes every category and writes the manifest. Individual photos that cannot be
// processed are skipped and listed in the report. If the source cannot be read the error wraps
// gather.ErrSourceUnreachable and nothing, neither assets nor manifest, has been written.
func (p *Processor) Run(ctx context.Context) (*Report, error) {

	t1 := time.Now()
	cfg := p.config

	source := p.source

	if source == nil {

		b, err := common.OpenBucket(ctx, cfg.Source, false)

		if err != nil {
			return nil, fmt.Errorf("%w, %w", gather.ErrSourceUnreachable, err)
		}

		defer b.Close()
		source = b
	}

	err := gather.CheckSource(ctx, source)

	if err != nil {
		return nil, err
	}

	gathered := make(map[string][]*gather.SourceAsset)

	for _, c := range cfg.Categories {

		opts := &gather.GatherAssetsOptions{
			Category:   c.Name,
			Directory:  c.Directory,
			Extensions: cfg.Extensions,
			Max:        cfg.MaxPhotosPerCategory,
			Depth:      1,
		}

		found, err := gather.GatherAssets(ctx, source, opts)

		if err != nil {
			return nil, fmt.Errorf("%w, %w", gather.ErrSourceUnreachable, err)
		}

		p.logger.Info("Gathered category", "category", c.Name, "count", len(found))
		gathered[c.Name] = found
	}

	assets := p.assets

	if assets == nil {

		b, err := common.OpenBucket(ctx, cfg.Assets, true)

		if err != nil {
			return nil, err
		}

		defer b.Close()
		assets = b
	}

	wr, manifest_key, err := common.NewWriterForPath(ctx, cfg.Manifest)

	if err != nil {
		return nil, err
	}

	r := &run{
		source:  source,
		assets:  assets,
		removal: remove.NewRemoval(assets),
		report: &Report{
			Manifest: cfg.Manifest,
			Skipped:  make([]*Skipped, 0),
		},
	}

	if p.stage {

		tmpdir, err := os.MkdirTemp("", "photos-manifest-")

		if err != nil {
			return nil, fmt.Errorf("Failed to create staging directory, %w", err)
		}

		defer os.RemoveAll(tmpdir)

		staging, err := common.OpenBucket(ctx, tmpdir, true)

		if err != nil {
			return nil, err
		}

		defer staging.Close()

		r.staging = staging
	}

	if cfg.Clean {

		removed, err := r.removal.RemovePrefixes(ctx, cfg.Thumbnail.Directory, cfg.Full.Directory)

		if err != nil {
			return nil, fmt.Errorf("Failed to remove existing variants, %w", err)
		}

		p.logger.Debug("Removed existing variants", "count", removed)
		r.report.Removed = removed
	}

	a := manifest.NewAssembler()

	err = p.assemble(ctx, r, a, gathered)

	if err != nil {
		return nil, err
	}

	err = a.Sort()

	if err != nil {
		return nil, err
	}

	_, err = a.Write(ctx, wr, manifest_key)

	if err != nil {
		return nil, err
	}

	// Categories that produced no photos are still reported, in scan order.
	summary := manifest.Summarize(a.Records())
	summary.Categories = a.Categories()

	r.report.Summary = summary
	r.report.Duration = time.Since(t1)

	if cfg.Metrics != "" {

		err := p.metrics.WriteTextfile(cfg.Metrics)

		if err != nil {
			p.logger.Warn("Failed to write metrics", "error", err)
		}
	}

	return r.report, nil
}

// assemble fans the re-encoding out to a bounded pool of workers and consumes the results in
// scan order, so that ids are claimed exactly as a sequential run would claim them.
func (p *Processor) assemble(ctx context.Context, r *run, a *manifest.Assembler, gathered map[string][]*gather.SourceAsset) error {

	jobs := make([]*job, 0)

	for _, c := range p.config.Categories {

		for _, asset := range gathered[c.Name] {

			j := &job{
				seq:      len(jobs),
				asset:    asset,
				category: c,
			}

			jobs = append(jobs, j)
		}
	}

	workers := p.config.Workers

	// Results are held until their turn so the window is bounded.
	slots := make(chan bool, workers*2)

	pending := make([]chan *result, len(jobs))

	for i := range pending {
		pending[i] = make(chan *result, 1)
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {

		for _, j := range jobs {

			select {
			case slots <- true:
				// pass
			case <-ctx.Done():

				pending[j.seq] <- &result{
					job:    j,
					reason: metrics.ReasonProcessing,
					err:    fmt.Errorf("%w, %v", encode.ErrImageProcessingFailed, ctx.Err()),
				}

				continue
			}

			g.Go(func() error {
				pending[j.seq] <- p.processJob(ctx, r, j)
				return nil
			})
		}

		g.Wait()
	}()

	seq := 0

	for _, c := range p.config.Categories {

		err := a.BeginCategory(c.Name)

		if err != nil {
			return err
		}

		for range gathered[c.Name] {

			res := <-pending[seq]

			select {
			case <-slots:
				// pass
			default:
				// pass
			}

			p.appendResult(ctx, r, a, res)
			seq += 1
		}

		err = a.EndCategory()

		if err != nil {
			return err
		}
	}

	return nil
}

// processJob runs a single job under the per-file timeout. A job that runs out of time is
// reported as failed; its goroutine is left to finish on its own.
func (p *Processor) processJob(ctx context.Context, r *run, j *job) *result {

	job_ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done_ch := make(chan *result, 1)

	go func() {
		done_ch <- p.encodeAsset(job_ctx, r, j)
	}()

	select {
	case res := <-done_ch:
		return res
	case <-job_ctx.Done():

		reason := metrics.ReasonProcessing

		if errors.Is(job_ctx.Err(), context.DeadlineExceeded) {
			reason = metrics.ReasonTimeout
		}

		res := &result{
			job:    j,
			reason: reason,
			err:    fmt.Errorf("%w, %s did not complete, %v", encode.ErrImageProcessingFailed, j.asset.Path, job_ctx.Err()),
		}

		return res
	}
}

func (p *Processor) encodeAsset(ctx context.Context, r *run, j *job) *result {

	t1 := time.Now()
	defer func() {
		p.metrics.ObserveDuration(time.Since(t1))
	}()

	res := &result{
		job: j,
	}

	body, err := p.readAsset(ctx, r, j.asset)

	if err != nil {
		res.reason = metrics.ReasonRead
		res.err = fmt.Errorf("%w, %w", encode.ErrImageProcessingFailed, err)
		return res
	}

	photo := media.NewPhoto(&media.NewPhotoOptions{
		Path:    j.asset.Path,
		Body:    body,
		ModTime: j.asset.ModTime,
		Logger:  p.logger,
	})

	variants, err := encode.Reencode(ctx, body, photo.Orientation(), p.thumbnail, p.full)

	if err != nil {
		res.reason = metrics.ReasonProcessing
		res.err = err
		return res
	}

	res.photo = photo
	res.variants = variants

	return res
}

func (p *Processor) readAsset(ctx context.Context, r *run, asset *gather.SourceAsset) ([]byte, error) {

	if r.staging == nil {
		return r.source.ReadAll(ctx, asset.Path)
	}

	staged, err := stage.Stage(ctx, &stage.StageOptions{
		Source: r.source,
		Target: r.staging,
		Key:    asset.Path,
	})

	if err != nil {
		return nil, err
	}

	defer func() {

		err := staged.Release(context.Background())

		if err != nil {
			p.logger.Warn("Failed to release staged copy", "path", asset.Path, "error", err)
		}
	}()

	return staged.ReadAll(ctx)
}

// appendResult claims the next id for a successfully encoded photo, writes its variants and
// appends its record. Failed photos are logged and counted, and never consume an id.
func (p *Processor) appendResult(ctx context.Context, r *run, a *manifest.Assembler, res *result) {

	j := res.job

	logger := p.logger.With("path", j.asset.Path, "category", j.category.Name)

	if res.err != nil {
		p.skip(r, logger, res.job, res.reason, res.err)
		return
	}

	record_opts := &media.NewPhotoRecordOptions{
		Category:           j.category.Name,
		CategoryDirectory:  j.category.Directory,
		BaseURL:            p.config.BaseURL,
		ThumbnailDirectory: p.config.Thumbnail.Directory,
		ThumbnailSuffix:    p.config.Thumbnail.Suffix,
		FullDirectory:      p.config.Full.Directory,
		FullSuffix:         p.config.Full.Suffix,
	}

	var written int64

	append_func := func(ctx context.Context, id int) (*manifest.Record, error) {

		names := naming.Assign(j.category.Name, id, j.asset.Path)

		keys := make([]string, 0)
		written = 0

		for _, v := range res.variants {

			var key string

			switch v.Label {
			case thumbnailLabel:
				key = path.Join(p.config.Thumbnail.Directory, names.Filename(p.config.Thumbnail.Suffix))
			default:
				key = path.Join(p.config.Full.Directory, names.Filename(p.config.Full.Suffix))
			}

			n, err := p.writeVariant(ctx, r.assets, key, v.Body)

			if err != nil {
				p.scrub(r, logger, append(keys, key)...)
				return nil, err
			}

			keys = append(keys, key)
			written += n
		}

		rec, err := media.NewPhotoRecord(res.photo, names, record_opts)

		if err != nil {
			p.scrub(r, logger, keys...)
			return nil, err
		}

		return rec, nil
	}

	rec, err := a.Append(ctx, append_func)

	if err != nil {
		p.skip(r, logger, j, metrics.ReasonWrite, err)
		return
	}

	r.report.BytesWritten += written
	p.metrics.BytesWritten(written)
	p.metrics.Processed(j.category.Name, rec.HasLocation())

	logger.Debug("Processed photo", "id", rec.Id, "filename", rec.Filename)
}

// scrub removes the variants of a photo that could not be completed.
func (p *Processor) scrub(r *run, logger *slog.Logger, keys ...string) {

	err := r.removal.RemoveKeys(context.Background(), keys...)

	if err != nil {
		logger.Warn("Failed to remove partially written variants", "keys", keys, "error", err)
	}
}

func (p *Processor) skip(r *run, logger *slog.Logger, j *job, reason string, err error) {

	logger.Warn("Skipping photo", "reason", reason, "error", err)

	p.metrics.Skipped(j.category.Name, reason)

	s := &Skipped{
		Path:     j.asset.Path,
		Category: j.category.Name,
		Reason:   reason,
		Error:    err.Error(),
	}

	r.report.Skipped = append(r.report.Skipped, s)
}

func (p *Processor) writeVariant(ctx context.Context, bucket *blob.Bucket, key string, body []byte) (int64, error) {

	wr_opts := &blob.WriterOptions{
		ContentType: encode.MimeType,
	}

	if p.config.PublicRead {

		before := func(asFunc func(interface{}) bool) error {

			s3_req := &s3manager.UploadInput{}
			ok := asFunc(&s3_req)

			if ok {
				s3_req.ACL = aws.String("public-read")
			}

			return nil
		}

		wr_opts.BeforeWrite = before
	}

	wr, err := bucket.NewWriter(ctx, key, wr_opts)

	if err != nil {
		return 0, fmt.Errorf("Failed to create writer for %s, %w", key, err)
	}

	n, err := wr.ReadFrom(bytes.NewReader(body))

	if err != nil {
		wr.Close()
		return 0, fmt.Errorf("Failed to write %s, %w", key, err)
	}

	err = wr.Close()

	if err != nil {
		return 0, fmt.Errorf("Failed to close writer for %s, %w", key, err)
	}

	return n, nil
}

func envelope(label string, v *config.Variant) encode.Envelope {

	env := encode.Envelope{
		Label:     label,
		MaxWidth:  v.MaxWidth,
		MaxHeight: v.MaxHeight,
		Quality:   v.Quality,
	}

	return env
}
