package main

import (
	"log"

	"github.com/suPer8Hu/model-gateway/internal/config"
	"github.com/suPer8Hu/model-gateway/internal/db"
	"github.com/suPer8Hu/model-gateway/internal/httpapi"
	"github.com/suPer8Hu/model-gateway/internal/store/rabbitmq"
	"github.com/suPer8Hu/model-gateway/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	db.Migrate(gdb)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer pub.Close()

	r, err := httpapi.NewRouter(gdb, cfg, pub, rds)
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	log.Printf("server listening addr=%s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
