// Copyright (C) 2024-2026 Kestrel VM Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License
// is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express
// or implied. See the License for the specific language governing permissions and limitations under the License.

package syncutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatestVersionedNotifier(t *testing.T) {
	vn := NewVersionedNotifier()

	listener := vn.Listen(VersionedListenAtLatest)
	useWaitChanListener := vn.Listen(VersionedListenAtLatest)

	done := make(chan struct{})
	go func() {
		err := listener.Wait(context.Background())
		if err != nil {
			t.Errorf("Wait returned an error: %v", err)
		}
		close(done)
	}()

	done2 := make(chan struct{})
	go func() {
		<-useWaitChanListener.WaitChan()
		close(done2)
	}()

	// Should be blocked.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	select {
	case <-done:
		t.Errorf("Wait returned before NotifyAll")
	case <-ctx.Done():
	}

	vn.NotifyAll()

	<-done
	<-done2
}

func TestEarliestVersionedNotifier(t *testing.T) {
	vn := NewVersionedNotifier()
	vn.NotifyAll()

	// earliest policy observes the notification that already happened
	listener := vn.Listen(VersionedListenAtEarliest)
	err := listener.Wait(context.Background())
	assert.NoError(t, err)

	// next Wait blocks until a fresh notification
	done := make(chan struct{})
	go func() {
		err := listener.Wait(context.Background())
		assert.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
		t.Errorf("Wait returned before NotifyAll")
	case <-time.After(10 * time.Millisecond):
	}

	vn.NotifyAll()
	<-done
}

func TestVersionedListenerSync(t *testing.T) {
	vn := NewVersionedNotifier()
	vn.NotifyAll()

	// earliest listener synced to latest must block again
	listener := vn.Listen(VersionedListenAtEarliest)
	listener.Sync()
	select {
	case <-listener.WaitChan():
		t.Errorf("WaitChan returned before NotifyAll")
	case <-time.After(10 * time.Millisecond):
	}

	vn.NotifyAll()
	select {
	case <-listener.WaitChan():
	case <-time.After(time.Second):
		t.Errorf("WaitChan did not observe NotifyAll")
	}
}

func TestTimeoutListeningVersionedNotifier(t *testing.T) {
	vn := NewVersionedNotifier()

	listener := vn.Listen(VersionedListenAtLatest)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := listener.Wait(ctx)
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
