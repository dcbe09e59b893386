package conversation

// Command vocabulary. Inbound text is trimmed and case-folded before matching.
const (
	cmdStart        = "начать"
	cmdStartSlash   = "/start"
	cmdBack         = "назад"
	cmdYes          = "да"
	cmdNo           = "нет"
	cmdWeather      = "погода"
	cmdTraffic      = "пробки"
	cmdEvents       = "афиша"
	cmdCurrency     = "валюта"
	cmdChangeCity   = "изменить город"
	cmdDayToday     = "сегодня"
	cmdDayTomorrow  = "завтра"
)

// Reply texts.
const (
	msgPressStart        = `Напишите "Начать" для начала работы`
	msgChooseCity        = "Пожалуйста, укажите ваш город"
	msgConfirmCityFmt    = "Ваш город - %s, верно?"
	msgCityRegistered    = "Город успешно зарегистрирован"
	msgChooseAction      = "Выберите действие:"
	msgChooseDay         = "Выберите день:"
	msgUseKeyboard       = "Пожалуйста, используйте команды с клавиатуры"
	msgSomethingWrong    = "Что-то пошло не так..."
	msgEventsUnavailable = "К сожалению, для этого города события недоступны"
	msgTrafficLevelFmt   = "Текущий уровень пробок: %d"
)
