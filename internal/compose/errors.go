/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import "errors"

var (
	// ErrInvalidArgument reports an out-of-range or malformed argument.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotAttached reports a stack operation on a layer without a document.
	ErrNotAttached = errors.New("layer is not attached to a document")
	// ErrUnsupported reports a geometry operation on a layer kind that does
	// not track its own size.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrResolution reports a merge selector that does not resolve to a
	// layer of the document.
	ErrResolution = errors.New("cannot resolve layer")
	// ErrMissingArgument reports a required argument that was not given.
	ErrMissingArgument = errors.New("missing argument")
)
