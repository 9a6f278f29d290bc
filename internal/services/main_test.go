package services

import (
	"context"
	"os"
	"testing"

	"github.com/Manudeeprao/expense-tracker/internal/logger"
)

var ctx = context.Background()

func TestMain(m *testing.M) {
	logger.Init("test")
	os.Exit(m.Run())
}
