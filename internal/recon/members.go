package recon

import (
	"context"
	"fmt"
	"log"
	"strings"

	"taskie/backend/internal/models"
)

// Team members ride the same mode machine as tasks: one probe per session,
// the same sticky fallback, a separate local file.

func (s *Service) localMemberID() string {
	return fmt.Sprintf("local-m-%d", s.now().UnixNano())
}

func (s *Service) writeLocalMembers() {
	if err := s.local.WriteMembers(s.members.Members()); err != nil {
		log.Printf("Failed to persist local members: %v", err)
	}
}

// LoadMembers mirrors Load: it returns the loaded snapshot so responses do
// not depend on the shared store surviving until the read.
func (s *Service) LoadMembers(ctx context.Context, ownerID string) ([]models.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensureMode(ctx) == ModeRemote {
		members, err := s.remote.QueryMembersByOwner(ctx, ownerID)
		if err == nil {
			s.members.ReplaceAll(members)
			return members, nil
		}
		s.degrade(err)
	}

	all := s.local.ReadMembers()
	kept := all[:0]
	for _, member := range all {
		if member.OwnerID == "" || member.OwnerID == ownerID {
			kept = append(kept, member)
		}
	}
	s.members.ReplaceAll(kept)
	return kept, nil
}

type MemberInput struct {
	Name  string
	Email string
	Role  string
}

func (in MemberInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Email) == "" {
		return &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	return nil
}

func (s *Service) CreateMember(ctx context.Context, input MemberInput, ownerID string) (models.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := input.validate(); err != nil {
		s.tasks.SetError(err.Error())
		return models.TeamMember{}, err
	}

	member := models.TeamMember{
		Name:    input.Name,
		Email:   input.Email,
		Role:    input.Role,
		OwnerID: ownerID,
	}

	if s.ensureMode(ctx) == ModeRemote {
		inserted, err := s.remote.InsertMember(ctx, member)
		if err == nil {
			s.members.Add(inserted)
			return inserted, nil
		}
		s.degrade(err)
	}

	member.ID = s.localMemberID()
	s.members.Add(member)
	s.writeLocalMembers()
	return member, nil
}

type MemberChanges struct {
	Name  *string
	Email *string
	Role  *string
}

func (s *Service) UpdateMember(ctx context.Context, memberID, ownerID string, changes MemberChanges) (models.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members.Get(memberID)
	if !ok {
		return models.TeamMember{}, nil
	}
	if member.OwnerID != "" && member.OwnerID != ownerID {
		return models.TeamMember{}, ErrNotOwner
	}

	if changes.Name != nil {
		if strings.TrimSpace(*changes.Name) == "" {
			err := &ValidationError{Field: "name", Reason: "must not be empty"}
			s.tasks.SetError(err.Error())
			return models.TeamMember{}, err
		}
		member.Name = *changes.Name
	}
	if changes.Email != nil {
		member.Email = *changes.Email
	}
	if changes.Role != nil {
		member.Role = *changes.Role
	}

	if s.ensureMode(ctx) == ModeRemote {
		err := s.remote.UpdateMember(ctx, member.ID, member.OwnerID, member)
		if err == nil {
			s.members.Update(member)
			return member, nil
		}
		s.degrade(err)
	}

	s.members.Update(member)
	s.writeLocalMembers()
	return member, nil
}

func (s *Service) DeleteMember(ctx context.Context, memberID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members.Get(memberID)
	if !ok {
		return nil
	}
	if member.OwnerID != "" && member.OwnerID != ownerID {
		return ErrNotOwner
	}

	if s.ensureMode(ctx) == ModeRemote {
		err := s.remote.DeleteMember(ctx, member.ID, member.OwnerID)
		if err == nil {
			s.members.Remove(memberID)
			return nil
		}
		s.degrade(err)
	}

	s.members.Remove(memberID)
	s.writeLocalMembers()
	return nil
}
