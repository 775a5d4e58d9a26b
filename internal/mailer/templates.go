package mailer

import "html/template"

const baseStyle = `body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #0f766e; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .overdue { color: #b91c1c; font-weight: 600; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }`

var reminderTemplate = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Pending items for {{.ProjectName}}</title>
    <style>` + baseStyle + `</style>
</head>
<body>
    <p>Hi {{.ClientName}},</p>
    <p>The following items for <strong>{{.ProjectName}}</strong> are due soon:</p>
    <ul>
    {{- range .Tasks}}
        <li>{{.Title}} - {{if .Overdue}}<span class="overdue">overdue since {{.DueDate}}</span>{{else}}due {{.DueDate}}{{end}}</li>
    {{- end}}
    </ul>
    <p><a href="{{.PortalURL}}" class="button">Open your onboarding portal</a></p>
    <div class="footer"><p>You are receiving this because you have open onboarding items.</p></div>
</body>
</html>`))

var inviteTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Welcome to {{.ProjectName}}</title>
    <style>` + baseStyle + `</style>
</head>
<body>
    <p>Hi {{.ClientName}},</p>
    <p>Your onboarding for <strong>{{.ProjectName}}</strong>{{if .CommunityName}} at {{.CommunityName}}{{end}} has started.</p>
    <p>Track progress, upload documents and sign agreements from your portal:</p>
    <p><a href="{{.PortalURL}}" class="button">Open your onboarding portal</a></p>
    <div class="footer"><p>Keep this link private. It gives access to your onboarding project.</p></div>
</body>
</html>`))
