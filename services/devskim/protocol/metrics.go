// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package protocol

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for the engine channel.
var (
	tracer = otel.Tracer("devskim.protocol")
	meter  = otel.Meter("devskim.protocol")
)

var (
	notificationTotal metric.Int64Counter
	callLatency       metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		notificationTotal, err = meter.Int64Counter(
			"devskim_notification_total",
			metric.WithDescription("Notifications sent to the analysis engine"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		callLatency, err = meter.Float64Histogram(
			"devskim_call_duration_seconds",
			metric.WithDescription("Round-trip duration of engine requests"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordNotification counts one outbound notification.
func recordNotification(method string, sendErr error) {
	if err := initMetrics(); err != nil {
		return
	}
	notificationTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("success", sendErr == nil),
	))
}

// startCallSpan opens a span for a request and returns its completion
// callback, which records latency and the final error state.
func startCallSpan(ctx context.Context, method string) func(error) {
	spanCtx, span := tracer.Start(ctx, "Handler.Call",
		trace.WithAttributes(attribute.String("rpc.method", method)),
	)
	start := time.Now()
	return func(callErr error) {
		span.SetAttributes(attribute.Bool("rpc.success", callErr == nil))
		span.End()
		if err := initMetrics(); err != nil {
			return
		}
		callLatency.Record(spanCtx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("method", method),
			attribute.Bool("success", callErr == nil),
		))
	}
}
