// Package attendance turns recognized faces into attendance records and
// decides when recognition should run based on seance schedules.
package attendance

import (
	"fmt"
	"log"
	"sync"

	"github.com/yacine-dev/attendclass/models"
	"github.com/yacine-dev/attendclass/repository"
)

// Recorder persists present-markings, deduplicating repeat sightings of
// the same person within a seance in memory so the database is only hit
// once per person per seance.
type Recorder struct {
	Persons repository.PersonStoreInterface
	Records repository.AttendanceRepositoryInterface

	mu     sync.Mutex
	marked map[string]bool
}

func NewRecorder(persons repository.PersonStoreInterface, records repository.AttendanceRepositoryInterface) *Recorder {
	return &Recorder{
		Persons: persons,
		Records: records,
		marked:  make(map[string]bool),
	}
}

// Record marks a person present for a seance. Returns true only when a
// new row was written. Unknown persons and storage failures are logged
// and skipped; a failed write is retried on the next sighting.
func (r *Recorder) Record(seanceID, personID uint, kind models.PersonKind) bool {
	key := fmt.Sprintf("%d/%s/%d", seanceID, kind, personID)

	r.mu.Lock()
	if r.marked[key] {
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	if _, err := r.Persons.GetPerson(personID, kind); err != nil {
		log.Printf("attendance: not recording %s %d: %v", kind, personID, err)
		return false
	}

	if err := r.Records.Upsert(seanceID, personID, kind, models.StatusPresent); err != nil {
		log.Printf("attendance: failed to record %s %d for seance %d: %v", kind, personID, seanceID, err)
		return false
	}

	r.mu.Lock()
	r.marked[key] = true
	r.mu.Unlock()
	return true
}

// Reset clears the in-memory dedup cache, typically between seances.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marked = make(map[string]bool)
}
