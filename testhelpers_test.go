//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/localserve/service-booking/internal/application"
	"github.com/localserve/service-booking/internal/common/database"
	"github.com/localserve/service-booking/internal/common/kafka"
	"github.com/localserve/service-booking/internal/contract/events"
	"github.com/localserve/service-booking/internal/domain/provider"
	bookingEvents "github.com/localserve/service-booking/internal/events"
	"github.com/localserve/service-booking/internal/notification"
	"github.com/localserve/service-booking/internal/repository"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	RedisAddr    string
	Cleanup      func()
}

// bookingStack holds wired-up booking service components.
type bookingStack struct {
	Engine     *application.AssignmentEngine
	Controller *application.LifecycleController
	Directory  *repository.GormProviderDirectory
	Cache      *repository.CachedProviderDirectory
	Consumer   *bookingEvents.BookingRequestConsumer
	Processor  *notification.Processor
	Cleanup    func()
}

// setupContainers starts PostgreSQL, Kafka and Redis testcontainers, applies
// the SQL migrations and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test_booking",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbConfig := database.PostgresConfig{
		Host:            pgHost,
		Port:            pgPort.Int(),
		User:            "test",
		Password:        "test",
		DBName:          "test_booking",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		db, err = database.Connect(dbConfig, logger)
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(dbConfig.DatabaseURL(), "migrations", logger))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, events.TopicBookingEvents, events.TopicBookingRequests)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	cleanup := func() {
		for name, c := range map[string]testcontainers.Container{
			"Redis": redisContainer, "Kafka": kafkaContainer, "PostgreSQL": pgContainer,
		} {
			if err := c.Terminate(ctx); err != nil {
				t.Logf("failed to terminate %s container: %v", name, err)
			}
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		RedisAddr:    net.JoinHostPort(redisHost, redisPort.Port()),
		Cleanup:      cleanup,
	}
}

// setupBookingStack wires up the booking service the way cmd/server does.
func setupBookingStack(t *testing.T, infra *testInfra) *bookingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	producer := kafka.NewProducer(infra.KafkaBrokers, logger)
	publisher := bookingEvents.NewKafkaEventPublisher(producer, logger)

	bookingRepo := repository.NewGormBookingRepository(infra.DB)
	notificationRepo := repository.NewGormNotificationRepository(infra.DB)
	gormDirectory := repository.NewGormProviderDirectory(infra.DB)

	cacheClient := redis.NewClient(&redis.Options{Addr: infra.RedisAddr})
	cachedDirectory := repository.NewCachedProviderDirectory(gormDirectory, cacheClient, time.Minute, logger)

	queueOpt := asynq.RedisClientOpt{Addr: infra.RedisAddr, DB: 1}
	queueClient := asynq.NewClient(queueOpt)
	notifier := notification.NewAsynqNotifier(queueClient, logger)
	processor := notification.NewProcessor(queueOpt, notificationRepo, 2, logger)

	engine := application.NewAssignmentEngine(bookingRepo, gormDirectory, notifier, publisher, logger).
		WithPreviewDirectory(cachedDirectory)
	controller := application.NewLifecycleController(bookingRepo, gormDirectory, engine, notifier, publisher, logger)

	groupID := fmt.Sprintf("test-booking-%s", uuid.New().String()[:8])
	consumer := bookingEvents.NewBookingRequestConsumer(infra.KafkaBrokers, groupID, engine, logger)

	return &bookingStack{
		Engine:     engine,
		Controller: controller,
		Directory:  gormDirectory,
		Cache:      cachedDirectory,
		Consumer:   consumer,
		Processor:  processor,
		Cleanup: func() {
			_ = consumer.Close()
			_ = queueClient.Close()
			_ = cacheClient.Close()
			_ = producer.Close()
		},
	}
}

// seedProvider stores a verified, active provider offering serviceID.
func seedProvider(t *testing.T, dir *repository.GormProviderDirectory, serviceID uuid.UUID, rating float64) uuid.UUID {
	t.Helper()
	p := &provider.Provider{
		ID:              uuid.New(),
		DisplayName:     fmt.Sprintf("provider %.1f", rating),
		OfferedServices: []uuid.UUID{serviceID},
		Verified:        true,
		Active:          true,
		Rating:          rating,
	}
	require.NoError(t, dir.Save(context.Background(), p), "failed to seed provider")
	return p.ID
}

// seedPendingBooking inserts a booking in status pending with no provider.
func seedPendingBooking(t *testing.T, db *gorm.DB, serviceID, customerID uuid.UUID) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	model := repository.BookingModel{
		ID:            uuid.New(),
		ServiceID:     serviceID,
		CustomerID:    customerID,
		Status:        "pending",
		ScheduledAt:   now.Add(24 * time.Hour),
		AmountCents:   12000,
		Currency:      "USD",
		CustomerNotes: "integration test",
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed booking")
	return model.ID
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	producer := kafka.NewProducer(brokers, zap.NewNop())
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForBooking polls the bookings table until match accepts the row.
func waitForBooking(t *testing.T, db *gorm.DB, bookingID uuid.UUID, timeout time.Duration, match func(repository.BookingModel) bool) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		if err := db.Where("id = ?", bookingID).First(&model).Error; err != nil {
			return false
		}
		if match(model) {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking %s never reached the expected state", bookingID)
	return result
}

// consumeEvent reads from a Kafka topic until it finds an event of the
// expected type whose subject is key.
func consumeEvent(t *testing.T, brokers []string, topic, expectedType, key string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     fmt.Sprintf("test-assert-%s", uuid.New().String()[:8]),
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType && ce.Subject == key {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
