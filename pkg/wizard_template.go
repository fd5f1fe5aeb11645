package pkg

var RenderFileTemplate = `
project: {{.Project}}

# Set this if templates should also see the parent process' environment
# carry_env: true

# Seed the template environment from a dotenv file
# env_file: .env

#
# Variables
#
# Options here can be used as {{"{{name}}"}} placeholders in src/dest paths.
#
opts:
  stage: env:STAGE,development

{{- if index .BackendKeys "consul" }}

# Defaults come from CONSUL_HTTP_ADDR / CONSUL_HTTP_TOKEN
consul:
  address: http://127.0.0.1:8500
  # token:
{{- end }}

{{- if index .BackendKeys "vault" }}

# Defaults come from VAULT_ADDR / VAULT_TOKEN
vault:
  address: http://127.0.0.1:8200
  # token:
{{- end }}

#
# Templates
#
# Each entry is rendered once and delivered atomically to dest.
#
templates:
  - src: templates/app.conf.ctmpl
    dest: /etc/app/{{"{{stage}}"}}.conf
    mode: "0600"
    backup: true
    # validate: "myapp --check-config %s"
`
