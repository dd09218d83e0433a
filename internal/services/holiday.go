package services

import (
	"sort"
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/at"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/be"
	"github.com/rickar/cal/v2/br"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/ch"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/dk"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fi"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/no"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/pl"
	"github.com/rickar/cal/v2/pt"
	"github.com/rickar/cal/v2/se"
	"github.com/rickar/cal/v2/us"
)

// countryCalendars are the rickar/cal calendars reminders can follow. CN is
// handled separately through lunar-go's adjusted working days.
var countryCalendars = []struct {
	code     string
	name     string
	holidays []*cal.Holiday
}{
	{"AT", "Austria", at.Holidays},
	{"AU", "Australia (NSW)", au.HolidaysNSW},
	{"BE", "Belgium", be.Holidays},
	{"BR", "Brazil", br.Holidays},
	{"CA", "Canada", ca.Holidays},
	{"CH", "Switzerland", ch.Holidays},
	{"DE", "Germany", de.Holidays},
	{"DK", "Denmark", dk.Holidays},
	{"ES", "Spain", es.Holidays},
	{"FI", "Finland", fi.Holidays},
	{"FR", "France", fr.Holidays},
	{"GB", "United Kingdom", gb.Holidays},
	{"IE", "Ireland", ie.Holidays},
	{"IT", "Italy", it.Holidays},
	{"JP", "Japan", jp.Holidays},
	{"NL", "Netherlands", nl.Holidays},
	{"NO", "Norway", no.Holidays},
	{"NZ", "New Zealand", nz.Holidays},
	{"PL", "Poland", pl.Holidays},
	{"PT", "Portugal", pt.Holidays},
	{"SE", "Sweden", se.Holidays},
	{"US", "United States", us.Holidays},
}

const (
	countryChina    = "CN"
	countryWeekdays = "NONE"
)

// HolidayService decides whether a date is a business day in a country so
// that reminders are not dispatched on weekends or public holidays. Unknown
// codes fall back to weekdays only.
type HolidayService struct {
	calendars map[string]*cal.BusinessCalendar
}

func NewHolidayService() *HolidayService {
	s := &HolidayService{calendars: make(map[string]*cal.BusinessCalendar, len(countryCalendars))}
	for _, cc := range countryCalendars {
		c := cal.NewBusinessCalendar()
		c.Name = cc.name
		c.AddHoliday(cc.holidays...)
		s.calendars[cc.code] = c
	}
	return s
}

func (s *HolidayService) IsWorkday(t time.Time, countryCode string) bool {
	code := strings.ToUpper(countryCode)
	if code == countryChina {
		return s.isWorkdayChina(t)
	}
	if c, ok := s.calendars[code]; ok {
		return c.IsWorkday(t)
	}
	return !cal.IsWeekend(t)
}

func (s *HolidayService) isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	// Make-up working days fall on weekends, so the table wins over the weekday.
	if h := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay()); h != nil {
		return h.IsWork()
	}
	return !cal.IsWeekend(t)
}

func (s *HolidayService) IsHoliday(t time.Time, countryCode string) bool {
	return !s.IsWorkday(t, countryCode)
}

// SupportedCountries lists the calendar codes accepted by reminder.country.
func (s *HolidayService) SupportedCountries() []CountryInfo {
	countries := []CountryInfo{
		{Code: countryChina, Name: "China"},
		{Code: countryWeekdays, Name: "Weekdays only"},
	}
	for code, c := range s.calendars {
		countries = append(countries, CountryInfo{Code: code, Name: c.Name})
	}
	sort.Slice(countries, func(i, j int) bool { return countries[i].Code < countries[j].Code })
	return countries
}

// Supports reports whether code names a known calendar.
func (s *HolidayService) Supports(code string) bool {
	code = strings.ToUpper(code)
	if code == countryChina || code == countryWeekdays {
		return true
	}
	_, ok := s.calendars[code]
	return ok
}

// NextWorkday returns the first workday strictly after t.
func (s *HolidayService) NextWorkday(t time.Time, countryCode string) time.Time {
	next := t.AddDate(0, 0, 1)
	for i := 0; i < 31 && !s.IsWorkday(next, countryCode); i++ {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
