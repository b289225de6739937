package view

import "time"

// Template names.
const (
	PageIndex        = "index.html"
	PageDashboard    = "dashboard.html"
	PageInbox        = "messages.html"
	PageSend         = "send-message.html"
	PageSent         = "message-sent.html"
	PageMessage      = "message-detail.html"
	PageAdminLogin   = "admin-login.html"
	PageAdmin        = "admin.html"
	PageAdminUser    = "admin-user.html"
	PageAccessDenied = "access-denied.html"

	FragmentAdminUserRow    = "admin-user-row.html"
	FragmentAdminMessageRow = "admin-message-row.html"
	FragmentEmptyRow        = "empty-row.html"
)

type IndexPage struct {
	Error string `view:"error"`
}

type DashboardPage struct {
	Username     string `view:"username"`
	UsernamePath string `view:"usernamePath"`
	Initial      string `view:"USERNAME_UPPER"`
	MessageCount int    `view:"messageCount"`
	UserLink     string `view:"userLink"`
	ShareMessage string `view:"whatsappMessage"`
}

type InboxPage struct {
	Username     string `view:"username"`
	UsernamePath string `view:"usernamePath"`
	MessageCount int    `view:"messageCount"`
}

type SendPage struct {
	Username     string `view:"username"`
	UsernamePath string `view:"usernamePath"`
	Initial      string `view:"USERNAME_UPPER"`
	MessageCount int    `view:"messageCount"`
}

type SentPage struct {
	Username     string `view:"username"`
	UsernamePath string `view:"usernamePath"`
}

type MessagePage struct {
	Username      string    `view:"username"`
	UsernamePath  string    `view:"usernamePath"`
	MessageID     int64     `view:"messageId"`
	Text          string    `view:"messageText"`
	ReceivedAt    time.Time `view:"messageTime"`
	Reaction      string    `view:"reaction"`
	TotalMessages int       `view:"totalMessages"`
}

type AdminLoginPage struct {
	Error string `view:"error"`
}

type AdminPage struct {
	TotalUsers    int  `view:"totalUsers"`
	TotalMessages int  `view:"totalMessages"`
	UsersList     HTML `view:"usersList"`
}

type AdminUserRow struct {
	Username     string    `view:"username"`
	UsernamePath string    `view:"usernamePath"`
	MessageCount int       `view:"messageCount"`
	CreatedAt    time.Time `view:"created"`
}

type AdminUserPage struct {
	Username     string `view:"username"`
	MessageCount int    `view:"messageCount"`
	MessagesList HTML   `view:"messagesList"`
}

type AdminMessageRow struct {
	UsernamePath string    `view:"usernamePath"`
	MessageID    int64     `view:"messageId"`
	Text         string    `view:"messageText"`
	ReceivedAt   time.Time `view:"messageTime"`
	Reaction     string    `view:"reaction"`
}

type EmptyRow struct {
	Text string `view:"text"`
}
