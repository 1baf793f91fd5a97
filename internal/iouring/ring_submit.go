//go:build linux

package iouring

// Submit flushes pending SQEs to the kernel without waiting for any
// completion.
func (r *Ring) Submit() (uint32, error) {
	return r.submitAndWait(0)
}

// SubmitAndWait flushes pending SQEs and blocks until at least waitNr
// completions are available.
func (r *Ring) SubmitAndWait(waitNr uint32) (uint32, error) {
	return r.submitAndWait(waitNr)
}

func (r *Ring) submitAndWait(waitNr uint32) (uint32, error) {
	submitted := r.flushSQ()
	var flags uint32
	if waitNr > 0 {
		flags |= EnterGetEvents
	}
	if submitted == 0 && waitNr == 0 {
		return 0, nil
	}
	return r.Enter(submitted, waitNr, flags)
}
