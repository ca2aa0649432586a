/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging injects a *zap.SugaredLogger into a context.Context,
// the way sigs.k8s.io/controller-runtime/pkg/log keys a logger off
// context so arbitrary call depths can retrieve it without threading an
// explicit parameter through every signature.
package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

var noop = zap.NewNop().Sugar()

// IntoContext returns a copy of ctx carrying logger.
func IntoContext(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger if
// none was injected. Solver entry points always call this rather than
// accept a logger parameter.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return noop
}

// NewDevelopment builds a human-readable logger for local runs and
// tests.
func NewDevelopment() *zap.SugaredLogger {
	l, err := zap.NewDevelopment()
	if err != nil {
		// Only fails on invalid hardcoded config; treat as a programmer
		// error.
		panic(err)
	}
	return l.Sugar()
}
