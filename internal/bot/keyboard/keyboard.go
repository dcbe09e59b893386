// Package keyboard builds reply keyboards for the bot. Construction is a pure
// function of a button list and carries no conversation logic.
package keyboard

import telebot "gopkg.in/telebot.v3"

// maxPerRow caps how many buttons share one keyboard row.
const maxPerRow = 3

// Button is a labeled choice. Primary is a rendering hint for platforms that
// support button emphasis; at most one button per keyboard carries it.
type Button struct {
	Text    string
	Primary bool
}

// Keyboard is an ordered grouping of buttons into rows.
type Keyboard struct {
	Rows [][]Button
}

// Build groups the buttons into rows of at most three, in order. The first
// button becomes primary unless another button is explicitly marked.
func Build(buttons ...Button) *Keyboard {
	if len(buttons) == 0 {
		return &Keyboard{}
	}

	marked := false
	for _, b := range buttons {
		if b.Primary {
			marked = true
			break
		}
	}
	if !marked {
		buttons[0].Primary = true
	}

	kb := &Keyboard{}
	for start := 0; start < len(buttons); start += maxPerRow {
		end := start + maxPerRow
		if end > len(buttons) {
			end = len(buttons)
		}

		row := make([]Button, end-start)
		copy(row, buttons[start:end])
		kb.Rows = append(kb.Rows, row)
	}

	return kb
}

// Markup converts the keyboard to a telebot reply markup. Telegram reply
// keyboards have no button emphasis, so the primary hint is dropped here.
func (k *Keyboard) Markup() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	if k == nil || len(k.Rows) == 0 {
		markup.RemoveKeyboard = true
		return markup
	}

	rows := make([]telebot.Row, 0, len(k.Rows))
	for _, row := range k.Rows {
		buttons := make([]telebot.Btn, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, markup.Text(b.Text))
		}
		rows = append(rows, markup.Row(buttons...))
	}

	markup.Reply(rows...)
	return markup
}

// StartMenu prompts the single start command.
func StartMenu() *Keyboard {
	return Build(Button{Text: "Начать"})
}

// MainMenu lists the five command words of the steady state.
func MainMenu() *Keyboard {
	return Build(
		Button{Text: "Погода"},
		Button{Text: "Пробки"},
		Button{Text: "Афиша"},
		Button{Text: "Валюта"},
		Button{Text: "Изменить город"},
	)
}

// ConfirmMenu offers a yes/no choice for the guessed city.
func ConfirmMenu() *Keyboard {
	return Build(
		Button{Text: "Да", Primary: true},
		Button{Text: "Нет"},
	)
}

// DaysMenu offers the day selection for weather and events queries.
func DaysMenu() *Keyboard {
	return Build(
		Button{Text: "Сегодня"},
		Button{Text: "Завтра"},
		Button{Text: "Назад"},
	)
}

// BackMenu offers only the global back command.
func BackMenu() *Keyboard {
	return Build(Button{Text: "Назад"})
}
