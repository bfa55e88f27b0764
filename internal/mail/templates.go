package mail

import (
	"fmt"
	"net/url"
	"strings"
)

// Message is a rendered plain-text mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

const signature = `
--
東京理科大学 ロッカー・団体登録システム
このメールは送信専用です。心当たりのない場合は破棄してください。
`

// Link builds the front-end URL for a step of a flow, for example
// https://app.example/locker/main-auth?token=....
func Link(appURL, flow, step, token string) string {
	q := url.Values{"token": {token}}
	return fmt.Sprintf("%s/%s/%s?%s", strings.TrimRight(appURL, "/"), flow, step, q.Encode())
}

func flowLabel(flow string) string {
	if flow == "circle" {
		return "団体登録"
	}
	return "ロッカー登録"
}

func MainAuth(to, flow, link string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("【%s】代表者の本人確認", flowLabel(flow)),
		Body: fmt.Sprintf(`%sの申請を受け付けました。
以下のリンクを開いて代表者の本人確認を完了してください。

%s
%s`, flowLabel(flow), link, signature),
	}
}

func CoAuth(to, flow, mainName, link string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("【%s】副代表者の本人確認", flowLabel(flow)),
		Body: fmt.Sprintf(`%sさんがあなたを副代表者として%sを申請しました。
内容に同意する場合は以下のリンクを開いてください。

%s
%s`, mainName, flowLabel(flow), link, signature),
	}
}

func AuthComplete(to, flow, link string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("【%s】本人確認が完了しました", flowLabel(flow)),
		Body: fmt.Sprintf(`代表者と副代表者の本人確認が完了しました。
以下のリンクから登録を続けてください。

%s
%s`, link, signature),
	}
}

func LockerClaimed(to, lockerID, location string, year int) Message {
	return Message{
		To:      to,
		Subject: "【ロッカー登録】登録が完了しました",
		Body: fmt.Sprintf(`%d年度のロッカー登録が完了しました。

ロッカー番号: %s
場所: %s
%s`, year, lockerID, location, signature),
	}
}

func CircleRegistered(to, organization string, year int) Message {
	return Message{
		To:      to,
		Subject: "【団体登録】書類を受け付けました",
		Body: fmt.Sprintf(`%d年度の団体登録書類を受け付けました。

団体名: %s

審査結果は改めてお知らせします。
%s`, year, organization, signature),
	}
}

func CircleReviewed(to, organization string, approved bool, comment string) Message {
	result := "承認されました"
	if !approved {
		result = "差し戻されました"
	}
	body := fmt.Sprintf("団体登録の審査結果をお知らせします。\n\n団体名: %s\n結果: %s\n", organization, result)
	if comment != "" {
		body += "コメント: " + comment + "\n"
	}
	return Message{
		To:      to,
		Subject: "【団体登録】審査結果のお知らせ",
		Body:    body + signature,
	}
}
