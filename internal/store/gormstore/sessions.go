package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/tus-lockers/locker-backend/internal/store"
	"gorm.io/gorm"
)

type authSessions struct{ s *Store }

func (r authSessions) Create(ctx context.Context, sess *store.Session) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			sess.Auth.Flow = sess.Payload.Flow()
			if err := tx.Create(&sess.Auth).Error; err != nil {
				return err
			}
			switch p := sess.Payload.(type) {
			case store.LockerPayload:
				row := lockerInfoRow(sess.Auth.AuthID, p)
				return tx.Create(&row).Error
			case store.CirclePayload:
				row := circleInfoRow(sess.Auth.AuthID, p)
				return tx.Create(&row).Error
			default:
				return fmt.Errorf("unknown auth payload %T", sess.Payload)
			}
		})
	})
}

func (r authSessions) Get(ctx context.Context, authID string) (*store.Session, error) {
	return r.load(ctx, "auth_id = ?", authID)
}

func (r authSessions) GetByMainToken(ctx context.Context, token string) (*store.Session, error) {
	return r.load(ctx, "main_auth_token = ?", token)
}

func (r authSessions) GetByCoToken(ctx context.Context, token string) (*store.Session, error) {
	return r.load(ctx, "co_auth_token = ?", token)
}

func (r authSessions) load(ctx context.Context, query string, args ...any) (*store.Session, error) {
	var sess store.Session
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		if err := tx.Where(query, args...).First(&sess.Auth).Error; err != nil {
			return err
		}
		switch sess.Auth.Flow {
		case store.FlowCircle:
			var row store.CircleAuthInfo
			if err := tx.First(&row, "auth_id = ?", sess.Auth.AuthID).Error; err != nil {
				return err
			}
			sess.Payload = circlePayload(row)
		default:
			var row store.LockerAuthInfo
			if err := tx.First(&row, "auth_id = ?", sess.Auth.AuthID).Error; err != nil {
				return err
			}
			sess.Payload = lockerPayload(row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r authSessions) AdvancePhase(ctx context.Context, authID string, from, to store.Phase) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&store.Auth{}).
			Where("auth_id = ? AND phase = ?", authID, from).
			Update("phase", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrConflict
		}
		return nil
	})
}

func (r authSessions) Delete(ctx context.Context, authID string) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			if err := deletePayloads(tx, []string{authID}); err != nil {
				return err
			}
			res := tx.Delete(&store.Auth{}, "auth_id = ?", authID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return nil
		})
	})
}

func (r authSessions) DeleteCreatedBefore(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := r.s.run(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			var ids []string
			if err := tx.Model(&store.Auth{}).Where("created_at < ?", t).Pluck("auth_id", &ids).Error; err != nil {
				return err
			}
			if len(ids) == 0 {
				return nil
			}
			if err := deletePayloads(tx, ids); err != nil {
				return err
			}
			res := tx.Delete(&store.Auth{}, "auth_id IN ?", ids)
			n = res.RowsAffected
			return res.Error
		})
	})
	return n, err
}

func (r authSessions) DeleteAll(ctx context.Context) error {
	return r.s.run(ctx, func(tx *gorm.DB) error {
		for _, m := range []any{&store.LockerAuthInfo{}, &store.CircleAuthInfo{}, &store.Auth{}} {
			if err := tx.Where("1 = 1").Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func deletePayloads(tx *gorm.DB, ids []string) error {
	if err := tx.Delete(&store.LockerAuthInfo{}, "auth_id IN ?", ids).Error; err != nil {
		return err
	}
	return tx.Delete(&store.CircleAuthInfo{}, "auth_id IN ?", ids).Error
}

func lockerInfoRow(authID string, p store.LockerPayload) store.LockerAuthInfo {
	return store.LockerAuthInfo{
		AuthID:         authID,
		MainStudentID:  p.Main.StudentID,
		MainFamilyName: p.Main.FamilyName,
		MainGivenName:  p.Main.GivenName,
		CoStudentID:    p.Co.StudentID,
		CoFamilyName:   p.Co.FamilyName,
		CoGivenName:    p.Co.GivenName,
	}
}

func lockerPayload(row store.LockerAuthInfo) store.LockerPayload {
	return store.LockerPayload{
		Main: store.UserInfo{StudentID: row.MainStudentID, FamilyName: row.MainFamilyName, GivenName: row.MainGivenName},
		Co:   store.UserInfo{StudentID: row.CoStudentID, FamilyName: row.CoFamilyName, GivenName: row.CoGivenName},
	}
}

func circleInfoRow(authID string, p store.CirclePayload) store.CircleAuthInfo {
	return store.CircleAuthInfo{
		AuthID:            authID,
		MainStudentID:     p.Main.StudentID,
		MainFamilyName:    p.Main.FamilyName,
		MainGivenName:     p.Main.GivenName,
		MainEmail:         p.Main.Email,
		MainPhone:         p.Main.Phone,
		CoStudentID:       p.Co.StudentID,
		CoFamilyName:      p.Co.FamilyName,
		CoGivenName:       p.Co.GivenName,
		CoEmail:           p.Co.Email,
		CoPhone:           p.Co.Phone,
		OrganizationName:  p.Organization.Name,
		OrganizationRuby:  p.Organization.Ruby,
		OrganizationEmail: p.Organization.Email,
		ClubType:          p.Organization.ClubType,
		DocumentURLs:      p.Documents.Slice(),
	}
}

func circlePayload(row store.CircleAuthInfo) store.CirclePayload {
	return store.CirclePayload{
		Main: store.RepresentativeInfo{
			UserInfo: store.UserInfo{StudentID: row.MainStudentID, FamilyName: row.MainFamilyName, GivenName: row.MainGivenName},
			Email:    row.MainEmail,
			Phone:    row.MainPhone,
		},
		Co: store.RepresentativeInfo{
			UserInfo: store.UserInfo{StudentID: row.CoStudentID, FamilyName: row.CoFamilyName, GivenName: row.CoGivenName},
			Email:    row.CoEmail,
			Phone:    row.CoPhone,
		},
		Organization: store.OrganizationInfo{
			Name:     row.OrganizationName,
			Ruby:     row.OrganizationRuby,
			Email:    row.OrganizationEmail,
			ClubType: row.ClubType,
		},
		Documents: store.DocumentsFromSlice(row.DocumentURLs),
	}
}
