/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Shared types for the Akaylee replay harness. Defines the execution event
model produced by the instrumentation layer, the site keys used to identify branch and
call sites, and the outcome of a single replayed run. Lives in its own package so the
coverage, execution and repro packages can share it without import cycles.
*/

package interfaces

import (
	"fmt"
)

// Site identifies the instruction that produced an event
type Site struct {
	IID              int    `json:"iid"`    // Instrumentation site id
	ContainingClass  string `json:"class"`  // Class or package containing the site
	ContainingMethod string `json:"method"` // Method or function containing the site
	Line             int    `json:"line"`   // Source line number
}

// TraceEvent is a single execution event emitted by instrumented code.
// Events are immutable values; String is the default textual rendering
// used when writing trace logs.
type TraceEvent interface {
	fmt.Stringer
	Location() Site
}

// BranchEvent is emitted when a branch arm is taken
type BranchEvent struct {
	Site
	Arm int `json:"arm"`
}

// Location returns the site of the branch
func (e BranchEvent) Location() Site { return e.Site }

func (e BranchEvent) String() string {
	return fmt.Sprintf("BRANCH(%d, %d)", e.IID, e.Arm)
}

// CallEvent is emitted when a method is invoked
type CallEvent struct {
	Site
	InvokedMethod string `json:"invoked"`
}

// Location returns the site of the call
func (e CallEvent) Location() Site { return e.Site }

func (e CallEvent) String() string {
	return fmt.Sprintf("CALL(%d, %s)", e.IID, e.InvokedMethod)
}

// ReturnEvent is emitted when a method returns
type ReturnEvent struct {
	Site
}

// Location returns the site of the return
func (e ReturnEvent) Location() Site { return e.Site }

func (e ReturnEvent) String() string {
	return fmt.Sprintf("RETURN(%d)", e.IID)
}

// AllocEvent is emitted for heap allocations
type AllocEvent struct {
	Site
	Size int `json:"size"`
}

// Location returns the site of the allocation
func (e AllocEvent) Location() Site { return e.Site }

func (e AllocEvent) String() string {
	return fmt.Sprintf("ALLOC(%d, %d)", e.IID, e.Size)
}

// SiteKind distinguishes branch sites from call sites
type SiteKind uint8

const (
	SiteBranch SiteKind = iota
	SiteCall
)

// SiteKey is the compound identity of a branch arm or call site.
// Call keys always carry Arm 0.
type SiteKey struct {
	Kind SiteKind
	IID  int
	Arm  int
}

// BranchKey returns the key for one arm of a branch site
func BranchKey(iid, arm int) SiteKey {
	return SiteKey{Kind: SiteBranch, IID: iid, Arm: arm}
}

// CallKey returns the key for a call site
func CallKey(iid int) SiteKey {
	return SiteKey{Kind: SiteCall, IID: iid}
}

// Hash mixes the key fields into a single integer. Distinct keys may
// share a hash, so it must never be used as an identity.
func (k SiteKey) Hash() uint64 {
	return uint64(k.IID)*31 + uint64(k.Arm) + uint64(k.Kind)<<56
}

// Result is the outcome of a single replayed run
type Result int

const (
	ResultSuccess Result = iota
	ResultInvalid
	ResultFailure
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultInvalid:
		return "INVALID"
	case ResultFailure:
		return "FAILURE"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// MarshalText renders the result by name in reports
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Callback receives every event produced by one execution thread
type Callback func(TraceEvent)

// CallbackFactory hands out a fresh callback for each execution thread
type CallbackFactory interface {
	GenerateCallback(thread string) Callback
}
