package cheats

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// shuffleSeed fixes the digit permutation so every server agrees on the code.
const shuffleSeed = 12345

// digitMap substitutes each shuffled date digit; the result never contains 0.
var digitMap = [10]byte{'1', '2', '4', '3', '2', '1', '3', '1', '4', '2'}

type Code struct {
	AppName string `json:"appName"`
	AppCode int64  `json:"appCode"`
}

type Usecase struct {
	appName string
	loc     *time.Location
	now     func() time.Time
}

func NewUsecase(appName, timezone string) (*Usecase, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("cheat time zone %q: %w", timezone, err)
	}
	return &Usecase{
		appName: appName,
		loc:     loc,
		now:     time.Now,
	}, nil
}

// WithClock replaces the clock that decides the current day.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// Current returns today's code.
func (u *Usecase) Current() Code {
	return Code{AppName: u.appName, AppCode: Generate(u.now().In(u.loc))}
}

// Verify reports whether code equals today's code.
func (u *Usecase) Verify(code string) bool {
	n, err := strconv.ParseInt(strings.TrimSpace(code), 10, 64)
	if err != nil {
		return false
	}
	return n == u.Current().AppCode
}

// Generate derives the code of the calendar day of date: its DDMMYYYY digits
// are shuffled with a fixed seed and substituted through digitMap.
func Generate(date time.Time) int64 {
	digits := []byte(date.Format("02012006"))
	rand.New(rand.NewSource(shuffleSeed)).Shuffle(len(digits), func(i, j int) {
		digits[i], digits[j] = digits[j], digits[i]
	})
	for i, d := range digits {
		digits[i] = digitMap[d-'0']
	}
	code, _ := strconv.ParseInt(string(digits), 10, 64)
	return code
}
