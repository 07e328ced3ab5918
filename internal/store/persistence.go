package store

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/pmulch/gamekit/internal/db"
	"github.com/pmulch/gamekit/internal/game"
)

// persist mirrors the authoritative document into Postgres. Callers
// hold s.mu. A nil connection makes the store purely in-memory.
func (s *Store) persist(doc *game.Game) error {
	if s.db == nil {
		return nil
	}
	players, err := json.Marshal(doc.Players)
	if err != nil {
		return err
	}
	custom := []byte("{}")
	if doc.Custom != nil {
		if custom, err = json.Marshal(doc.Custom); err != nil {
			return err
		}
	}
	record := db.Game{
		ID:         doc.ID,
		Name:       doc.Name,
		HostID:     doc.Host.ID,
		State:      doc.State,
		AccessCode: doc.AccessCode,
		Active:     doc.Active,
		Modified:   doc.Modified,
		Players:    datatypes.JSON(players),
		Custom:     datatypes.JSON(custom),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&record).Error
}

func (s *Store) logEvent(doc *game.Game, eventType string, payload map[string]any) error {
	if s.db == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := db.Event{
		GameID:  doc.ID,
		Type:    eventType,
		Payload: datatypes.JSON(data),
	}
	return s.db.Create(&record).Error
}

// LoadActive rehydrates every active game from the database into the
// in-memory map, typically once at server start.
func (s *Store) LoadActive() error {
	if s.db == nil {
		return nil
	}
	var records []db.Game
	if err := s.db.Where("active = ?", true).Find(&records).Error; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		if _, ok := s.games[record.ID]; ok {
			continue
		}
		var players []game.Player
		if len(record.Players) > 0 {
			if err := json.Unmarshal(record.Players, &players); err != nil {
				return err
			}
		}
		var custom map[string]any
		if len(record.Custom) > 0 {
			if err := json.Unmarshal(record.Custom, &custom); err != nil {
				return err
			}
		}
		doc := game.New(nil)
		doc.ID = record.ID
		doc.Name = record.Name
		doc.Host = game.Host{ID: record.HostID}
		doc.State = record.State
		doc.AccessCode = record.AccessCode
		doc.Active = record.Active
		doc.Modified = record.Modified
		doc.Custom = custom
		if players != nil {
			doc.Players = players
		}
		s.games[record.ID] = doc
	}
	return nil
}
