/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectInsetAndCenter(t *testing.T) {
	r := R(10, 20, 100, 50)
	assert.Equal(t, Rect{X: 15, Y: 25, W: 90, H: 40}, r.Inset(5, 5))
	c := r.Center()
	assert.Equal(t, 60.0, c.X)
	assert.Equal(t, 45.0, c.Y)
}

func TestRotatedBounds(t *testing.T) {
	cases := []struct {
		w, h         int
		deg          float64
		wantW, wantH int
	}{
		{400, 200, 90, 200, 400},
		{400, 200, 180, 400, 200},
		{400, 200, 0, 400, 200},
		{100, 100, 45, 141, 141},
		{400, 200, -90, 200, 400},
	}
	for _, tc := range cases {
		w, h := RotatedBounds(tc.w, tc.h, tc.deg)
		assert.Equal(t, [2]int{tc.wantW, tc.wantH}, [2]int{w, h}, "RotatedBounds(%d,%d,%v)", tc.w, tc.h, tc.deg)
	}
}

func TestFloatRound(t *testing.T) {
	assert.Equal(t, 1.23, FloatRound(1.23456, 2))
	assert.Equal(t, 1.5, FloatRound(1.5, -1), "negative places should be identity")
}
