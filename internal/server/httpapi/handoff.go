package httpapi

import "html/template"

const handoffTemplate = "handoff"

// The bearer token lands in a script context, where html/template quotes
// and escapes it as a JS string.
var handoffPage = template.Must(template.New(handoffTemplate).Parse(`<!DOCTYPE html>
<html>
  <body>
    <script type="text/javascript">
      const hassUrl = window.location.protocol + '//' + window.location.host;
      const access_token = {{.AccessToken}};
      localStorage.setItem('hassTokens', JSON.stringify({ access_token: access_token, hassUrl: hassUrl }));
      window.location.href = hassUrl;
    </script>
  </body>
</html>
`))
