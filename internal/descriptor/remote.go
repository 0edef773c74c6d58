package descriptor

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/simsal/internal/config"
	"github.com/tensorplex-labs/simsal/internal/imaging"
)

const DescribePath = "/describe"

// DescribeRequest is the body posted to the descriptor service.
type DescribeRequest struct {
	Height   int       `json:"height"`
	Width    int       `json:"width"`
	Channels int       `json:"channels"`
	Pixels   []float64 `json:"pixels"`
}

// DescribeResponse is the descriptor service reply.
type DescribeResponse struct {
	Descriptor []float64 `json:"descriptor"`
	Error      *string   `json:"error,omitempty"`
}

// Remote calls an HTTP descriptor service, one request per image. It is
// safe for concurrent use.
type Remote struct {
	client  *resty.Client
	encoder *zstd.Encoder
	BaseURL string
}

// NewRemote creates a descriptor client using the provided environment
// configuration. Transient failures are retried by the transport.
func NewRemote(cfg *config.DescriptorEnvConfig) (*Remote, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.DescriptorRetries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = retryLogger{}

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(cfg.DescriptorURL).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(cfg.DescriptorTimeout)

	r := &Remote{client: client, BaseURL: cfg.DescriptorURL}
	if cfg.DescriptorZstd {
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, errors.Wrap(err, "create zstd encoder")
		}
		r.encoder = encoder
	}

	return r, nil
}

// Describe fetches the feature vector of a single image.
func (r *Remote) Describe(ctx context.Context, img *imaging.Image) ([]float64, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	body := DescribeRequest{
		Height:   img.Height,
		Width:    img.Width,
		Channels: img.Channels,
		Pixels:   img.Pix,
	}

	var result DescribeResponse
	req := r.client.R().
		SetContext(ctx).
		SetResult(&result)

	if r.encoder != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal describe request")
		}
		req.SetHeader("Content-Type", "application/json").
			SetHeader("Content-Encoding", "zstd").
			SetBody(r.encoder.EncodeAll(raw, nil))
	} else {
		req.SetBody(body)
	}

	resp, err := req.Post(DescribePath)
	if err != nil {
		log.Error().Err(err).Str("path", DescribePath).Msg("post request failed")
		return nil, errors.Wrapf(err, "post %s", DescribePath)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Str("path", DescribePath).Msg("post non-2xx")
		return nil, fmt.Errorf("request returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Error != nil {
		log.Error().Str("error", *result.Error).Str("path", DescribePath).Msg("response contains error")
		return nil, fmt.Errorf("response error: %s", *result.Error)
	}
	if len(result.Descriptor) == 0 {
		return nil, fmt.Errorf("response from %s carried no descriptor", DescribePath)
	}

	return result.Descriptor, nil
}

func (r *Remote) GenerateArrays(ctx context.Context, images iter.Seq[*imaging.Image]) iter.Seq2[[]float64, error] {
	return Func(r.Describe).GenerateArrays(ctx, images)
}

// retryLogger routes retryablehttp's leveled logging into zerolog.
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Error().Fields(keysAndValues).Msg(msg)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Info().Fields(keysAndValues).Msg(msg)
}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Warn().Fields(keysAndValues).Msg(msg)
}
