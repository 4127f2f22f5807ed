package store

import (
	"sync"

	"taskie/backend/internal/models"
)

// MemberStore mirrors TaskStore for team members, minus the transient flags
// the task UI needs.
type MemberStore struct {
	mu      sync.RWMutex
	members []models.TeamMember
}

func NewMemberStore() *MemberStore {
	return &MemberStore{}
}

func (s *MemberStore) ReplaceAll(members []models.TeamMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make([]models.TeamMember, len(members))
	copy(s.members, members)
}

func (s *MemberStore) Add(member models.TeamMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.ID == member.ID {
			return
		}
	}
	s.members = append(s.members, member)
}

func (s *MemberStore) Update(member models.TeamMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.members {
		if existing.ID == member.ID {
			s.members[i] = member
			return
		}
	}
}

func (s *MemberStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.members {
		if existing.ID == id {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return
		}
	}
}

func (s *MemberStore) Members() []models.TeamMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TeamMember, len(s.members))
	copy(out, s.members)
	return out
}

func (s *MemberStore) Get(id string) (models.TeamMember, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, member := range s.members {
		if member.ID == id {
			return member, true
		}
	}
	return models.TeamMember{}, false
}
