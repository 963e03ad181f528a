// Package bridge sequences LT9211C bring-up as a resumable stage machine.
//
// A Bridge owns one chip. Enable starts the machine at StagePrepare; each
// invocation runs consecutive stages until one fails or the output is
// running, then yields. Failures never escape the controller: they become
// a delayed re-entry at the stage that should run next, so an absent or
// unstable DSI source just keeps the bridge retrying RX timing detection.
//
// All chip access happens on a single workqueue worker. Detach cancels that
// worker before closing the register map, after which no bus traffic is
// possible.
package bridge
