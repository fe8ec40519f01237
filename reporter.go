/**
 * Copyright 2022 kmeaw
 *
 * Licensed under the GNU Affero General Public License (AGPL).
 *
 * This program is free software: you can redistribute it and/or modify it
 * under the terms of the GNU Affero General Public License as published by the
 * Free Software Foundation, version 3 of the License.
 *
 * This program is distributed in the hope that it will be useful, but WITHOUT
 * ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
 * FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
 * for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */
package main

import (
	"context"
	"sync"
	"time"
)

const SUBSCRIBER_TIMEOUT = time.Minute

// Reporter hands the latest job report to every subscriber.
type Reporter struct {
	lastEvent *Report
	seq       uint64
	timeout   time.Duration
	mu        *sync.Mutex
	cv        *sync.Cond
}

func NewReporter() *Reporter {
	r := &Reporter{timeout: SUBSCRIBER_TIMEOUT}
	r.mu = new(sync.Mutex)
	r.cv = sync.NewCond(r.mu)
	return r
}

func (r *Reporter) Broadcast(event Report) {
	r.mu.Lock()
	r.lastEvent = &event
	r.seq++
	r.mu.Unlock()

	r.cv.Broadcast()
}

// Last returns the most recent report, if any.
func (r *Reporter) Last() (Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastEvent == nil {
		return Report{}, false
	}
	return *r.lastEvent, true
}

// Subscribe returns a channel receiving every report broadcast after the
// call. The channel is closed once ctx is done or the subscriber fails to
// receive within SUBSCRIBER_TIMEOUT. Every goroutine started here exits with
// the subscription.
func (r *Reporter) Subscribe(ctx context.Context) <-chan Report {
	ch := make(chan Report)

	r.mu.Lock()
	last_seq := r.seq
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.cv.Broadcast()
			r.mu.Unlock()
		case <-done:
		}
	}()

	go func(ch chan Report) {
		defer close(ch)
		defer close(done)

		for {
			r.mu.Lock()
			for r.seq == last_seq && ctx.Err() == nil {
				r.cv.Wait()
			}
			if ctx.Err() != nil {
				r.mu.Unlock()
				return
			}
			event := *r.lastEvent
			last_seq = r.seq
			r.mu.Unlock()

			t := time.NewTimer(r.timeout)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
				// timed out
				return
			case ch <- event:
				// done
			}
			t.Stop()
		}
	}(ch)
	return ch
}

// vim: ai:ts=8:sw=8:noet:syntax=go
