package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formation/internal/attendance"
	"formation/internal/config"
	"formation/internal/formation"
	"formation/internal/notify"
	"formation/internal/queue"
	"formation/internal/store"
)

// Worker consumes queue messages and sends enrollment notifications to
// freshly imported candidates.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "formation:jobs")
	}

	candidates := attendance.NewRepository(db.Client)
	formations := formation.NewRepository(db.Client)
	notifier := notify.New(cfg.NotifyServiceURL, cfg.NotifySkip)

	if !cfg.NotifySkip {
		if err := notifier.Health(ctx); err != nil {
			log.Printf("WARNING: notification service not available: %v", err)
			log.Println("Worker will retry when messages arrive")
		} else {
			log.Println("Notification service connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeRosterImported {
			continue
		}

		var payload queue.RosterImported
		if err := json.Unmarshal(msg.Body, &payload); err != nil {
			log.Printf("malformed roster message: %v", err)
			continue
		}
		log.Printf("notifying %d candidates for formation %s", len(payload.CandidateIDs), payload.FormationID)

		f, err := formations.Get(ctx, payload.FormationID)
		if err != nil {
			log.Printf("fetch formation %s failed: %v", payload.FormationID, err)
			continue
		}
		link, err := notifier.ShareLink(ctx, "formations/"+f.ID)
		if err != nil {
			log.Printf("share link for %s failed: %v", f.ID, err)
		}

		for _, id := range payload.CandidateIDs {
			cand, err := candidates.GetCandidate(ctx, id)
			if err != nil {
				log.Printf("fetch candidate %s failed: %v", id, err)
				continue
			}
			err = notifier.SendEnrollment(ctx, notify.Enrollment{
				Email:          cand.Email,
				CandidateName:  cand.FirstName + " " + cand.LastName,
				FormationTitle: f.Title,
				Link:           link,
			})
			if err != nil {
				log.Printf("notify %s failed: %v", cand.Email, err)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	log.Println("worker stopped")
}
