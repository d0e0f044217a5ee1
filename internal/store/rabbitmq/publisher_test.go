package rabbitmq

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(`{"job_id":"j1","user_id":"u1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.JobID != "j1" || m.UserID != "u1" {
		t.Fatalf("unexpected message: %+v", m)
	}

	if _, err := Decode([]byte(`{"user_id":"u1"}`)); err == nil {
		t.Fatalf("expected error for missing job_id")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for bad body")
	}
}

func TestAttempts(t *testing.T) {
	cases := []struct {
		headers amqp.Table
		want    int
	}{
		{nil, 0},
		{amqp.Table{"other": "x"}, 0},
		{amqp.Table{retryHeader: int32(2)}, 2},
		{amqp.Table{retryHeader: int64(3)}, 3},
		{amqp.Table{retryHeader: "3"}, 0},
	}
	for _, tc := range cases {
		if got := Attempts(amqp.Delivery{Headers: tc.headers}); got != tc.want {
			t.Errorf("Attempts(%v) = %d, want %d", tc.headers, got, tc.want)
		}
	}
}
