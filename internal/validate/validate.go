// Package validate holds the input patterns shared by every handler. The
// expressions are compiled once at package init.
package validate

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	MinSearchYear = 2024
	MinFloor      = 2
	MaxFloor      = 6
	CampusDomain  = "ed.tus.ac.jp"
)

var (
	studentIDRegex = regexp.MustCompile(`^(15\d{5}|[48][1-6]\d{5})$`)
	nameRegex      = regexp.MustCompile(`^[A-Za-z\p{Katakana}\p{Hiragana}\p{Han}]+$`)
	tokenRegex     = regexp.MustCompile(`^[a-zA-Z0-9]{16}$`)
	lockerIDRegex  = regexp.MustCompile(`^[2-6]\d{3}$`)
	phoneRegex     = regexp.MustCompile(`^0\d{1,4}-?\d{1,4}-?\d{3,4}$`)
	rubyRegex      = regexp.MustCompile(`^[\p{Hiragana}\p{Katakana}ー・ 　A-Za-z0-9]+$`)
)

var (
	ErrStudentID = errors.New("invalid student id")
	ErrName      = errors.New("invalid name")
	ErrToken     = errors.New("invalid token")
	ErrLockerID  = errors.New("invalid locker id")
	ErrFloor     = errors.New("invalid floor")
	ErrYear      = errors.New("invalid year")
	ErrAuthID    = errors.New("invalid auth id")
	ErrURL       = errors.New("invalid document url")
	ErrEmail     = errors.New("invalid email")
	ErrPhone     = errors.New("invalid phone number")
	ErrOrgName   = errors.New("invalid organization name")
	ErrRuby      = errors.New("invalid organization ruby")
)

// MaxOrganizationName bounds the organization name in characters.
const MaxOrganizationName = 100

func StudentID(id string) error {
	if !studentIDRegex.MatchString(id) {
		return ErrStudentID
	}
	return nil
}

// NormalizeName folds half-width katakana (voiced marks included) to full
// width and full-width latin to ASCII so both spellings of a name compare
// equal.
func NormalizeName(name string) string {
	return norm.NFKC.String(strings.TrimSpace(name))
}

// Name validates an already normalized name.
func Name(name string) error {
	if !nameRegex.MatchString(name) {
		return ErrName
	}
	return nil
}

// NamePrefix accepts the empty string, which matches every name.
func NamePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	return Name(prefix)
}

func Token(token string) error {
	if !tokenRegex.MatchString(token) {
		return ErrToken
	}
	return nil
}

func LockerID(id string) error {
	if !lockerIDRegex.MatchString(id) {
		return ErrLockerID
	}
	return nil
}

// Floor parses an optional floor query value into a locker id prefix.
// The empty string yields the empty prefix.
func Floor(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < MinFloor || n > MaxFloor {
		return "", ErrFloor
	}
	return strconv.Itoa(n), nil
}

func Year(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < MinSearchYear {
		return 0, ErrYear
	}
	return n, nil
}

func AuthID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrAuthID
	}
	return nil
}

// DocumentURL requires an absolute https URL.
func DocumentURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return ErrURL
	}
	return nil
}

// CampusEmail is the university mailbox of a student.
func CampusEmail(studentID string) string {
	return studentID + "@" + CampusDomain
}

// RepresentativeEmail accepts an empty address or the student's own campus
// mailbox.
func RepresentativeEmail(studentID, email string) error {
	if email == "" || strings.EqualFold(email, CampusEmail(studentID)) {
		return nil
	}
	return ErrEmail
}

// FloorOf returns the floor digit of a valid locker id.
func FloorOf(lockerID string) int {
	if lockerID == "" {
		return 0
	}
	return int(lockerID[0] - '0')
}

// Phone accepts an empty value or a Japanese domestic number.
func Phone(phone string) error {
	if phone == "" || phoneRegex.MatchString(phone) {
		return nil
	}
	return ErrPhone
}

func OrganizationName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxOrganizationName || strings.ContainsAny(name, "<>\n") {
		return ErrOrgName
	}
	return nil
}

// Ruby accepts an empty reading or kana.
func Ruby(ruby string) error {
	if ruby == "" || rubyRegex.MatchString(ruby) {
		return nil
	}
	return ErrRuby
}

// Email is a loose shape check for contact addresses.
func Email(addr string) error {
	if addr == "" {
		return nil
	}
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 || strings.ContainsAny(addr, " <>") {
		return ErrEmail
	}
	return nil
}
