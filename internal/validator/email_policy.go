package validator

import "strings"

// 既定で許可するメールプロバイダ
var defaultAllowedDomains = []string{
	"gmail.com",
	"googlemail.com",
	"outlook.com",
	"hotmail.com",
	"live.com",
	"msn.com",
	"yahoo.com",
	"yahoo.es",
	"icloud.com",
	"me.com",
	"proton.me",
	"protonmail.com",
	"aol.com",
	"gmx.com",
	"zoho.com",
}

// 使い捨てメールのドメイン（許可リストより優先）
var defaultBlockedDomains = []string{
	"mailinator.com",
	"10minutemail.com",
	"guerrillamail.com",
	"tempmail.com",
	"temp-mail.org",
	"yopmail.com",
	"trashmail.com",
	"throwawaymail.com",
	"getnada.com",
	"dispostable.com",
	"sharklasers.com",
	"maildrop.cc",
}

// EmailPolicy はドメインの許可・拒否を判定する
type EmailPolicy struct {
	allowed map[string]struct{}
	blocked map[string]struct{}
}

// 空のリストは既定値を使う
func NewEmailPolicy(allowed []string, blocked []string) *EmailPolicy {
	if len(allowed) == 0 {
		allowed = defaultAllowedDomains
	}
	if len(blocked) == 0 {
		blocked = defaultBlockedDomains
	}
	return &EmailPolicy{
		allowed: toSet(allowed),
		blocked: toSet(blocked),
	}
}

func (p *EmailPolicy) IsBlocked(domain string) bool {
	_, ok := p.blocked[strings.ToLower(domain)]
	return ok
}

func (p *EmailPolicy) IsAllowed(domain string) bool {
	_, ok := p.allowed[strings.ToLower(domain)]
	return ok
}

func domainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, v := range list {
		m[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return m
}
