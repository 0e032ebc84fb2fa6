/*
Copyright (c) Facebook, Inc. and its affiliates.

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

package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestIncFramesSent(t *testing.T) {
	s := New()
	s.IncFramesSent("gcb1")
	s.IncFramesSent("gcb1")
	s.IncFramesSent("gcb2")

	require.Equal(t, float64(2), testutil.ToFloat64(s.framesSent.WithLabelValues("gcb1")))
	require.Equal(t, float64(1), testutil.ToFloat64(s.framesSent.WithLabelValues("gcb2")))
}

func TestIncSendErrors(t *testing.T) {
	s := New()
	s.IncSendErrors("gcb1")
	require.Equal(t, float64(1), testutil.ToFloat64(s.sendErrors.WithLabelValues("gcb1")))
}

func TestSetCurrentIntervalMillis(t *testing.T) {
	s := New()
	s.SetCurrentIntervalMillis("gcb1", 40)
	s.SetCurrentIntervalMillis("gcb1", 80)
	require.Equal(t, float64(80), testutil.ToFloat64(s.currentInterval.WithLabelValues("gcb1")))
}

func TestIncAsdusSent(t *testing.T) {
	s := New()
	s.IncAsdusSent("msvID1")
	s.IncAsdusSent("msvID1")
	require.Equal(t, float64(2), testutil.ToFloat64(s.asdusSent.WithLabelValues("msvID1")))
}
