package server

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// ZstdMiddleware decompresses zstd request bodies and compresses responses
// for clients that accept zstd. Whitelisted paths pass through untouched.
// Request bodies that decompress past maxDecodedSize bytes are rejected;
// zero or less means no limit.
func ZstdMiddleware(whitelistedRoutes []string, maxDecodedSize int) fiber.Handler {
	if whitelistedRoutes == nil {
		whitelistedRoutes = []string{HealthPath, MetricsPath}
		log.Debug().
			Any("default", whitelistedRoutes).
			Msg("Whitelisted routes not specified, using default whitelist")
	}

	return func(c *fiber.Ctx) error {
		if slices.Contains(whitelistedRoutes, c.Path()) {
			return c.Next()
		}

		if strings.EqualFold(c.Get(fiber.HeaderContentEncoding), "zstd") {
			if body := c.Body(); len(body) > 0 {
				decompressed, err := decodeZstd(body, maxDecodedSize)
				if err != nil {
					log.Err(err).Msg("Failed to decompress request")
					return c.Status(fiber.StatusBadRequest).JSON(
						createResponse(fiber.StatusBadRequest, map[string]any{},
							fmt.Errorf("failed to decompress zstd data: %w", err)))
				}

				c.Request().SetBody(decompressed)
				c.Request().Header.Del(fiber.HeaderContentEncoding)
				log.Debug().
					Int("compressed_size", len(body)).
					Int("size", len(decompressed)).
					Msg("Request body decompressed")
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		if !strings.Contains(strings.ToLower(c.Get(fiber.HeaderAcceptEncoding)), "zstd") {
			return nil
		}
		responseBody := c.Response().Body()
		if len(responseBody) == 0 {
			return nil
		}

		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			log.Err(err).Msg("Failed to create zstd encoder")
			return nil
		}
		defer encoder.Close()

		compressed := encoder.EncodeAll(responseBody, nil)
		c.Response().SetBody(compressed)
		c.Set(fiber.HeaderContentEncoding, "zstd")

		log.Debug().
			Int("original_size", len(responseBody)).
			Int("compressed_size", len(compressed)).
			Msg("Response body compressed")

		return nil
	}
}

func decodeZstd(body []byte, maxSize int) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if maxSize > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(uint64(maxSize)))
	}

	decoder, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	decoded, err := decoder.DecodeAll(body, nil)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && len(decoded) > maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", zstd.ErrDecoderSizeExceeded, len(decoded), maxSize)
	}

	return decoded, nil
}
