// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hwc

import "errors"

var (
	// ErrNilBackend is returned by New without a display backend.
	ErrNilBackend = errors.New("hwc: nil display backend")

	// ErrInvalidScreen is returned for a screen without area.
	ErrInvalidScreen = errors.New("hwc: invalid screen size")

	// ErrNilPlan is returned by Submit for a nil plan.
	ErrNilPlan = errors.New("hwc: nil plan")

	// ErrStalePlan is returned by Submit for a plan other than the most
	// recent one.
	ErrStalePlan = errors.New("hwc: stale plan")

	// ErrDuplicateZ reports two enabled overlays with the same z-order.
	ErrDuplicateZ = errors.New("hwc: duplicate overlay z-order")

	// ErrDuplicateSlot reports two enabled overlays on the same pipeline.
	ErrDuplicateSlot = errors.New("hwc: duplicate overlay slot")
)
