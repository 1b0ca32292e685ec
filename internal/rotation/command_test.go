package rotation

import (
	"testing"
	"time"
)

func TestHub_publishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	hub.Publish(Command{Op: "play", Surface: RoleA})

	for i, ch := range []<-chan Command{ch1, ch2} {
		select {
		case cmd := <-ch:
			if cmd.Op != "play" || cmd.Surface != RoleA {
				t.Errorf("subscriber %d got %+v", i, cmd)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestHub_cancelledSubscriberStopsReceiving(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	cancel()

	hub.Publish(Command{Op: "play"})

	select {
	case cmd := <-ch:
		t.Errorf("cancelled subscriber got %+v", cmd)
	default:
	}
}

func TestHub_slowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Well past the subscriber buffer size.
		for i := 0; i < 1000; i++ {
			hub.Publish(Command{Op: "rate", Value: float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestRemoteSurface_publishesCommands(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	s := NewRemoteSurface(RoleB, hub)
	s.Load("/clip.mp4")
	s.Play()
	s.SetRate(0.7)
	s.SetOpacity(1, 500*time.Millisecond)
	s.Seek(4.9)
	s.Pause()

	want := []Command{
		{Op: "load", Surface: RoleB, Address: "/clip.mp4"},
		{Op: "play", Surface: RoleB},
		{Op: "rate", Surface: RoleB, Value: 0.7},
		{Op: "opacity", Surface: RoleB, Value: 1, RampMs: 500},
		{Op: "seek", Surface: RoleB, Value: 4.9},
		{Op: "pause", Surface: RoleB},
	}
	for i, w := range want {
		select {
		case got := <-ch:
			if got != w {
				t.Errorf("command %d = %+v, want %+v", i, got, w)
			}
		default:
			t.Fatalf("missing command %d (%s)", i, w.Op)
		}
	}
}
