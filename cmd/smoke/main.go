// Command smoke drives the full match lifecycle in-process against
// in-memory stores and fails loudly when any invariant breaks. Useful as
// a quick regression check without a database.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"studyswap.org/internal/catalog"
	"studyswap.org/internal/discovery"
	"studyswap.org/internal/fanout"
	"studyswap.org/internal/match"
	"studyswap.org/internal/notify"
	"studyswap.org/internal/trust"
)

func main() {
	logger := zap.NewNop()
	ctx := context.Background()

	catStore := catalog.NewInMemory()
	registry := fanout.New(fanout.DefaultBuffer, logger)
	dispatcher := notify.NewDispatcher(notify.NewInMemory(), registry, nil, nil, logger)
	ledger := trust.NewLedger(trust.NewInMemory(), dispatcher, logger)
	disc := discovery.NewService(catStore)
	matches := match.NewService(match.NewInMemory(), catStore, disc, ledger, dispatcher, logger)

	now := time.Now().UTC()
	matA, err := catStore.Save(ctx, catalog.Material{
		OwnerID: "alice", Title: "CS201 midterm notes",
		Subject: "CS201", ExamType: "MIDTERM",
		Approval: catalog.ApprovalApproved, CreatedAt: now,
	})
	if err != nil {
		log.Fatalf("seed material A: %v", err)
	}
	if _, err := catStore.Save(ctx, catalog.Material{
		OwnerID: "bob", Title: "CS201 midterm summary",
		Subject: "CS201", ExamType: "MIDTERM",
		Approval: catalog.ApprovalApproved, CreatedAt: now,
	}); err != nil {
		log.Fatalf("seed material B: %v", err)
	}

	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()
	bobStream := registry.Subscribe(streamCtx, "bob")

	m, err := matches.Request(ctx, "alice", matA.ID, "bob")
	if err != nil {
		log.Fatalf("request match: %v", err)
	}
	if m.Status != match.StatusPending {
		log.Fatalf("expected PENDING, got %s", m.Status)
	}
	if got := m.ExpiredAt.Sub(m.CreatedAt); got != match.TTL {
		log.Fatalf("expiry window %s, want %s", got, match.TTL)
	}

	select {
	case n := <-bobStream:
		if n.Type != notify.TypeMatchRequestReceived {
			log.Fatalf("live notification type %s", n.Type)
		}
	case <-time.After(time.Second):
		log.Fatal("bob's stream never saw the match request")
	}

	if _, err := matches.Accept(ctx, m.ID, "alice"); err == nil {
		log.Fatal("requester was allowed to accept")
	}
	if _, err := matches.Accept(ctx, m.ID, "bob"); err != nil {
		log.Fatalf("accept: %v", err)
	}
	if _, err := matches.Complete(ctx, m.ID, "alice"); err != nil {
		log.Fatalf("complete: %v", err)
	}

	for _, user := range []string{"alice", "bob"} {
		st, err := ledger.Get(ctx, user)
		if err != nil {
			log.Fatalf("trust %s: %v", user, err)
		}
		if st.Score != 1 {
			log.Fatalf("trust %s = %d, want 1", user, st.Score)
		}
	}

	log.Println("smoke OK: request -> accept -> complete, trust rewarded, stream delivered")
}
