//go:build !real_waku

package mailbox

func newGoWakuBackend() goWakuBackend { return nil }
