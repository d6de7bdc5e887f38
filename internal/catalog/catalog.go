// Package catalog serves the reference data behind rooms: the game catalog
// and the word bank. Both live in Postgres, are seeded once on boot, and
// change rarely; rooms snapshot a game's default settings at creation time.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wordroom/wordroom-server/internal/models"
)

// Game is one playable game mode with its default settings.
type Game struct {
	ID              string `gorm:"primaryKey;size:64" json:"id"`
	Name            string `gorm:"size:255;not null" json:"name"`
	Description     string `json:"description"`
	Mode            string `gorm:"size:32;not null" json:"mode"`
	IsActive        bool   `gorm:"not null;default:true" json:"isActive"`
	MinPlayers      int    `gorm:"not null" json:"minPlayers"`
	MaxPlayers      int    `gorm:"not null" json:"maxPlayers"`
	QuestionsCount  int    `gorm:"not null" json:"questionsCount"`
	TimePerQuestion int    `gorm:"not null" json:"timePerQuestion"`
	Difficulty      string `gorm:"size:16;not null" json:"difficulty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Word is a vocabulary entry used to build questions.
type Word struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Word       string `gorm:"size:64;not null;index" json:"word"`
	Meaning    string `gorm:"size:255;not null" json:"meaning"`
	Example    string `json:"example,omitempty"`
	Category   string `gorm:"size:64" json:"category,omitempty"`
	Difficulty string `gorm:"size:16;index" json:"difficulty,omitempty"`
}

// Catalog wraps the reference-data store.
type Catalog struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to Postgres.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return db, nil
}

func New(db *gorm.DB, log *zap.Logger) *Catalog {
	return &Catalog{db: db, log: log}
}

func (c *Catalog) Migrate(ctx context.Context) error {
	return c.db.WithContext(ctx).AutoMigrate(&Game{}, &Word{})
}

// Games lists the active catalog.
func (c *Catalog) Games(ctx context.Context) ([]Game, error) {
	var games []Game
	err := c.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&games).Error
	return games, err
}

// Game fetches one catalog entry, active or not.
func (c *Catalog) Game(ctx context.Context, id string) (*Game, error) {
	var game Game
	err := c.db.WithContext(ctx).First(&game, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// DefaultSettings implements lifecycle.SettingsProvider: a room's settings
// snapshot starts from the catalog's defaults for its game.
func (c *Catalog) DefaultSettings(ctx context.Context, gameID string) (models.GameSettings, error) {
	game, err := c.Game(ctx, gameID)
	if err != nil {
		return models.GameSettings{}, err
	}
	if !game.IsActive {
		return models.GameSettings{}, models.ErrGameNotFound
	}
	return models.GameSettings{
		MinPlayers:      game.MinPlayers,
		MaxPlayers:      game.MaxPlayers,
		QuestionsCount:  game.QuestionsCount,
		TimePerQuestion: game.TimePerQuestion,
		Difficulty:      game.Difficulty,
	}, nil
}

// Words draws up to limit entries for question generation, randomly ordered
// so consecutive rounds differ. "mixed" draws across all difficulties.
func (c *Catalog) Words(ctx context.Context, difficulty string, limit int) ([]Word, error) {
	q := c.db.WithContext(ctx).Order("RANDOM()").Limit(limit)
	if difficulty != "" && difficulty != "mixed" {
		q = q.Where("difficulty = ?", difficulty)
	}
	var words []Word
	err := q.Find(&words).Error
	return words, err
}
