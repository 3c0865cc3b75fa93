// Package enforcer defines the narrow contract the admission controller
// uses to push priority decisions out to the host-side traffic-control
// enforcer, kept deliberately out of scope for everything beyond this
// interface per spec.md §1/§6. Grounded in
// original_source/SNC-Meister/SNC-Meister.cpp's updateClient/removeClient.
package enforcer

import "context"

// Enforcer is the collaborator contract: update a flow's priority, or
// remove it, at the enforcer addressed by enforcerAddr for the given
// src/dst pair. Failures are logged by callers but never change an
// admission verdict that has already been returned.
type Enforcer interface {
	Update(ctx context.Context, enforcerAddr, dstAddr, srcAddr string, priority int) error
	Remove(ctx context.Context, enforcerAddr, dstAddr, srcAddr string) error
}
