package authflow

import (
	"errors"
	"fmt"

	"github.com/tus-lockers/locker-backend/internal/store"
	"github.com/tus-lockers/locker-backend/internal/validate"
)

var errNoPayload = errors.New("missing payload")

// normalizePayload folds name widths and validates every field, returning the
// cleaned payload.
func normalizePayload(p store.Payload) (store.Payload, error) {
	switch p := p.(type) {
	case store.LockerPayload:
		if err := normalizeUser(&p.Main); err != nil {
			return nil, fmt.Errorf("main: %w", err)
		}
		if err := normalizeUser(&p.Co); err != nil {
			return nil, fmt.Errorf("co: %w", err)
		}
		return p, nil

	case store.CirclePayload:
		if err := normalizeRepresentative(&p.Main); err != nil {
			return nil, fmt.Errorf("main: %w", err)
		}
		if err := normalizeRepresentative(&p.Co); err != nil {
			return nil, fmt.Errorf("co: %w", err)
		}
		if err := validate.OrganizationName(p.Organization.Name); err != nil {
			return nil, err
		}
		p.Organization.Ruby = validate.NormalizeName(p.Organization.Ruby)
		if err := validate.Ruby(p.Organization.Ruby); err != nil {
			return nil, err
		}
		if err := validate.Email(p.Organization.Email); err != nil {
			return nil, err
		}
		for _, u := range p.Documents.Slice() {
			if err := validate.DocumentURL(u); err != nil {
				return nil, err
			}
		}
		return p, nil
	}
	return nil, errNoPayload
}

func normalizeUser(u *store.UserInfo) error {
	if err := validate.StudentID(u.StudentID); err != nil {
		return err
	}
	u.FamilyName = validate.NormalizeName(u.FamilyName)
	u.GivenName = validate.NormalizeName(u.GivenName)
	if err := validate.Name(u.FamilyName); err != nil {
		return err
	}
	return validate.Name(u.GivenName)
}

func normalizeRepresentative(r *store.RepresentativeInfo) error {
	if err := normalizeUser(&r.UserInfo); err != nil {
		return err
	}
	if err := validate.RepresentativeEmail(r.StudentID, r.Email); err != nil {
		return err
	}
	return validate.Phone(r.Phone)
}
