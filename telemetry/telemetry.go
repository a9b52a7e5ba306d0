// Package telemetry exports cache traces and logs over OTLP/HTTP.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/agentuity/go-objectcache/logger"
)

const exportTimeout = 10 * time.Second

// Config selects the OTLP collector and how to authenticate with it.
type Config struct {
	ServiceName string
	// Endpoint is the collector base URL; /v1/traces and /v1/logs are appended.
	Endpoint string
	// Token is sent as a bearer token when set.
	Token string
	// SharedSecret signs a short lived bearer token when Token is empty.
	SharedSecret string
}

// GenerateOTLPBearerToken signs token with sharedSecret.
func GenerateOTLPBearerToken(sharedSecret string, token string) (string, error) {
	hash := sha256.New()
	if _, err := hash.Write([]byte(sharedSecret + "." + token)); err != nil {
		return "", errors.Wrap(err, "error hashing token")
	}
	return token + "." + base64.StdEncoding.EncodeToString(hash.Sum(nil)), nil
}

// GenerateOTLPBearerTokenWithExpiration signs a token that encodes its
// lifetime and issue time.
func GenerateOTLPBearerTokenWithExpiration(sharedSecret string, expiration time.Time) (string, error) {
	d := time.Until(expiration)
	if d <= 0 {
		return "", errors.New("expiration time is in the past")
	}
	if d >= time.Hour {
		d = d.Round(time.Hour)
	} else {
		d = d.Round(time.Second)
	}
	return GenerateOTLPBearerToken(sharedSecret, str2duration.String(d)+"."+strconv.FormatInt(time.Now().Unix(), 10))
}

// ShutdownFunc flushes and stops the exporters.
type ShutdownFunc func(ctx context.Context) error

// New installs a global tracer provider exporting spans to the collector and
// returns a logger that writes to both base and the collector.
func New(ctx context.Context, cfg Config, base logger.Logger) (logger.Logger, ShutdownFunc, error) {
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, nil, errors.Newf("error parsing otlp endpoint %q", cfg.Endpoint)
	}
	headers := map[string]string{}
	token := cfg.Token
	if token == "" && cfg.SharedSecret != "" {
		if token, err = GenerateOTLPBearerTokenWithExpiration(cfg.SharedSecret, time.Now().Add(24*time.Hour)); err != nil {
			return nil, nil, err
		}
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	insecure := endpoint.Scheme == "http"

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil && !errors.Is(err, resource.ErrPartialResource) && !errors.Is(err, resource.ErrSchemaURLConflict) {
		return nil, nil, errors.Wrap(err, "error creating resource")
	}

	endpoint.Path = "/v1/traces"
	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(endpoint.String()),
		otlptracehttp.WithHeaders(headers),
		otlptracehttp.WithTimeout(exportTimeout),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error creating trace exporter")
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)

	endpoint.Path = "/v1/logs"
	logOpts := []otlploghttp.Option{
		otlploghttp.WithEndpointURL(endpoint.String()),
		otlploghttp.WithHeaders(headers),
		otlploghttp.WithTimeout(exportTimeout),
		otlploghttp.WithCompression(otlploghttp.GzipCompression),
	}
	if insecure {
		logOpts = append(logOpts, otlploghttp.WithInsecure())
	}
	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		tracerProvider.Shutdown(ctx)
		return nil, nil, errors.Wrap(err, "error creating log exporter")
	}
	logProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)

	otel.SetTracerProvider(tracerProvider)

	level := logger.LevelTrace
	for _, l := range []logger.LogLevel{logger.LevelTrace, logger.LevelDebug, logger.LevelInfo, logger.LevelWarn, logger.LevelError} {
		if base.IsLevelEnabled(l) {
			level = l
			break
		}
	}
	log := logger.Tee(base, logger.NewOtelLogger(logProvider.Logger(cfg.ServiceName), level))

	return log, func(ctx context.Context) error {
		return errors.CombineErrors(tracerProvider.Shutdown(ctx), logProvider.Shutdown(ctx))
	}, nil
}
