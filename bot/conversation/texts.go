package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultChannelURL is the public link of the gating channel.
const DefaultChannelURL = "https://t.me/thedreamersguide"

// Texts holds every user-visible message.
type Texts struct {
	Welcome        string
	FollowUp       string
	Gate           string
	Thanks         string
	Retry          string
	FeedbackThanks string
	BroadcastDone  string
	BroadcastUsage string
	Fallback       string
}

// DefaultTexts returns the stock Russian texts with channelURL substituted;
// an empty channelURL means DefaultChannelURL.
func DefaultTexts(channelURL string) Texts {
	if strings.TrimSpace(channelURL) == "" {
		channelURL = DefaultChannelURL
	}
	return Texts{
		Welcome:  "Рада, что ты здесь! 💗\n\nЛови гайд КАК СПЛАНИРОВАТЬ ПУТЕШЕСТВИЕ СВОИМ ХОДОМ В ЛЮБУЮ СТРАНУ 🌍\n\nЖелаю приятного планирования! ✨",
		FollowUp: "Удалось посмотреть планер? Напиши свое мнение в ответ на это сообщение",
		Gate: "Твой тревел-планер тебя уже заждался! 💗\n\nДля получения планера подпишись на телеграм-канал Путеводитель Мечтателя " +
			channelURL + " 🗺✨\n\nИ затем напиши сюда слово \"готово\"",
		Thanks: "Спасибо за подписку! В канале тебя ждет много всего интересного из самых разных уголков света!🌍\n\n" +
			"Лови планер для твоих будущих путешествий. Надеюсь, он поможет тебе при планировании 💗✨",
		Retry:          "Упс! Не получилось. Давай попробуем еще раз. Подпишись на телеграм-канал и напиши слово \"готово\"☺️",
		FeedbackThanks: "Спасибо за отзыв! 💗\n\nБольше идей для путешествий в канале Путеводитель Мечтателя " + channelURL,
		BroadcastDone:  "Отправлено!",
		BroadcastUsage: "Напиши текст рассылки после команды: /send_all <текст>",
		Fallback:       "Что-то пошло не так. Попробуй еще раз чуть позже 🙏",
	}
}

// withDefaults fills empty fields from DefaultTexts.
func (t Texts) withDefaults() Texts {
	d := DefaultTexts("")
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&t.Welcome, d.Welcome)
	fill(&t.FollowUp, d.FollowUp)
	fill(&t.Gate, d.Gate)
	fill(&t.Thanks, d.Thanks)
	fill(&t.Retry, d.Retry)
	fill(&t.FeedbackThanks, d.FeedbackThanks)
	fill(&t.BroadcastDone, d.BroadcastDone)
	fill(&t.BroadcastUsage, d.BroadcastUsage)
	fill(&t.Fallback, d.Fallback)
	return t
}

// operatorNote renders feedback for the operator chat, quoting body verbatim.
func operatorNote(handle string, fromID int64, body string) string {
	who := "id " + strconv.FormatInt(fromID, 10)
	if h := strings.TrimPrefix(strings.TrimSpace(handle), "@"); h != "" {
		who = "@" + h
	}
	return fmt.Sprintf("Отзыв от %s:\n\n«%s»", who, body)
}
