package conversation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/citymate-bot/citymate/internal/provider"
)

func formatWeather(s provider.WeatherSnapshot) string {
	return fmt.Sprintf(
		"%s\nТемпература %.1f C\nОщущается как %.1f C\nВлажность %d%%\nСкорость ветра %.1f м/с",
		capitalize(s.Description),
		s.Temp,
		s.FeelsLike,
		s.Humidity,
		s.WindSpeed,
	)
}

func formatRates(rates []provider.Rate) string {
	var sb strings.Builder
	sb.WriteString("Курс валют в рублях:")
	for _, rate := range rates {
		sb.WriteString(fmt.Sprintf("\n%s %.2f", rate.Name, rate.Value))
	}

	return sb.String()
}

func formatEvents(city string, day provider.Day, events []provider.Event) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Топ мероприятий в городе %s %s:", capitalize(city), dayWord(day)))
	for _, event := range events {
		sb.WriteString(fmt.Sprintf("\n%s - %s (%s)", event.Title, event.Price, event.Link))
	}

	return sb.String()
}

func formatTraffic(level int) string {
	return fmt.Sprintf(msgTrafficLevelFmt, level)
}

func dayWord(day provider.Day) string {
	if day == provider.DayTomorrow {
		return cmdDayTomorrow
	}

	return cmdDayToday
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
