package auth

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hitoshi/eduwiki/internal/model"
)

// AccessPolicy はメールアドレスの許可リストとロール階層による認可判定を行う。
// 許可リストはプロセス起動時に設定から構築され、管理操作でのみ変更される。
// 変更はこのプロセスのメモリ上のコピーにのみ反映され、永続化されない。
type AccessPolicy struct {
	mu      sync.RWMutex
	domains map[string]struct{}
	emails  map[string]struct{}
}

// NewAccessPolicy は許可ドメインと許可メールアドレスからAccessPolicyを生成する。
func NewAccessPolicy(allowedDomains, allowedEmails []string) *AccessPolicy {
	p := &AccessPolicy{
		domains: make(map[string]struct{}),
		emails:  make(map[string]struct{}),
	}
	for _, d := range allowedDomains {
		p.domains[d] = struct{}{}
	}
	for _, e := range allowedEmails {
		p.emails[e] = struct{}{}
	}
	return p
}

// IsAuthorized は指定メールアドレスが許可リストに含まれるかを判定する。
// メールアドレス全体または最後の"@"以降のドメインのいずれかが
// 許可リストに含まれていれば許可される。空文字列は常に不許可。
func (p *AccessPolicy) IsAuthorized(email string) bool {
	if email == "" {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.emails[email]; ok {
		return true
	}
	if _, ok := p.domains[domainOf(email)]; ok {
		return true
	}
	return false
}

// AuthorizationReason は認可判定の診断用の理由文字列を返す。
// 不許可の場合のみ意味を持つ。ドメイン判定を先に報告する。
func (p *AccessPolicy) AuthorizationReason(email string) string {
	if email == "" {
		return "メールアドレスが指定されていません"
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	domain := domainOf(email)
	if _, ok := p.domains[domain]; !ok {
		if _, ok := p.emails[email]; !ok {
			return fmt.Sprintf("ドメイン '%s' は許可リストに含まれていません", domain)
		}
	}
	if _, ok := p.emails[email]; !ok {
		return fmt.Sprintf("メールアドレス '%s' は許可リストに含まれていません", email)
	}

	return "許可済みのユーザーです"
}

// RoleSatisfies はactualRoleがrequiredRoleの要件を満たすかを判定する。
// adminは全てのロール要件を満たす。admin以外のロール間に階層はない。
func (p *AccessPolicy) RoleSatisfies(actualRole, requiredRole string) bool {
	return actualRole == requiredRole || actualRole == model.RoleAdmin
}

// AddAllowedDomain は許可ドメインを追加する。既に存在する場合は何もしない。
func (p *AccessPolicy) AddAllowedDomain(domain string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.domains[domain] = struct{}{}
}

// RemoveAllowedDomain は許可ドメインを削除する。存在しない場合は何もしない。
func (p *AccessPolicy) RemoveAllowedDomain(domain string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.domains, domain)
}

// AddAllowedEmail は許可メールアドレスを追加する。既に存在する場合は何もしない。
func (p *AccessPolicy) AddAllowedEmail(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emails[email] = struct{}{}
}

// RemoveAllowedEmail は許可メールアドレスを削除する。存在しない場合は何もしない。
func (p *AccessPolicy) RemoveAllowedEmail(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.emails, email)
}

// AllowedDomains は許可ドメイン一覧のソート済みコピーを返す。
func (p *AccessPolicy) AllowedDomains() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.domains)
}

// AllowedEmails は許可メールアドレス一覧のソート済みコピーを返す。
func (p *AccessPolicy) AllowedEmails() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.emails)
}

// domainOf はメールアドレスの最後の"@"以降の部分を返す。
func domainOf(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return email
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
