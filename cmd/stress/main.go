// Command stress fires concurrent rental requests at a single movie and
// verifies that the number of successes equals the initial stock.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/vidly/rental/internal/adapter/storage"
	"github.com/vidly/rental/internal/clock"
	"github.com/vidly/rental/internal/config"
	"github.com/vidly/rental/internal/core/domain"
	"github.com/vidly/rental/internal/core/service"
)

const (
	movieID       = "stress-movie"
	customerID    = "stress-customer"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Seed the movie and customer for this run.
	if _, err := db.ExecContext(ctx, `
		INSERT INTO movies (id, title, genre, number_in_stock, daily_rental_rate)
		VALUES (?, 'Stress Test Movie', 'action', ?, 2.5)
		ON DUPLICATE KEY UPDATE number_in_stock = VALUES(number_in_stock)`,
		movieID, initialStock,
	); err != nil {
		log.Fatalf("failed to seed movie: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, is_gold)
		VALUES (?, 'Stress Tester', '00000000', FALSE)
		ON DUPLICATE KEY UPDATE name = VALUES(name)`,
		customerID,
	); err != nil {
		log.Fatalf("failed to seed customer: %v", err)
	}
	db.ExecContext(ctx, `DELETE FROM rentals WHERE movie_id = ?`, movieID)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	rentalService := service.NewRentalService(
		mysqlAdapter, mysqlAdapter, mysqlAdapter,
		redisAdapter, redisAdapter,
		clock.NewSystem(),
	)

	var successCount atomic.Int32
	var outOfStockCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := rentalService.RentMovie(ctx, service.RentMovieInput{
				CustomerID: customerID,
				MovieID:    movieID,
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrOutOfStock):
				outOfStockCount.Add(1)
			default:
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	var finalStock int
	db.QueryRowContext(ctx,
		`SELECT number_in_stock FROM movies WHERE id = ?`, movieID,
	).Scan(&finalStock)

	var rentalCount int
	db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rentals WHERE movie_id = ?`, movieID,
	).Scan(&rentalCount)

	fmt.Println("========== STRESS RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Out of Stock:     %d\n", outOfStockCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Final Stock:      %d\n", finalStock)
	fmt.Printf("Rentals Created:  %d\n", rentalCount)
	fmt.Printf("Elapsed:          %v\n", elapsed)

	if int(successCount.Load()) != initialStock || finalStock != 0 || rentalCount != initialStock {
		fmt.Println("RESULT: INCONSISTENT, successes vs final stock vs rental count disagree")
		return
	}
	fmt.Println("RESULT: CONSISTENT")
}
