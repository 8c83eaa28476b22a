package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// handleClientJS serves the embed script that fills [data-mi-region] hosts.
func (s *Server) handleClientJS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !validHost(r.Host) {
		http.Error(w, "Invalid host", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	serverURL := fmt.Sprintf("%s://%s", scheme, r.Host)

	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write([]byte(GenerateClientScript(serverURL)))
}

// GenerateClientScript returns mi.js bound to serverURL.
//
// Each host element names its region in data-mi-region and the page's true
// conditionals in data-mi-conditions. Hosts marked data-mi-responsive="server"
// send the viewport width so only the matching variant is returned.
func GenerateClientScript(serverURL string) string {
	quoted, _ := json.Marshal(serverURL)
	return fmt.Sprintf(`(function(){
  var S=%s;

  function load(el){
    var region=el.dataset.miRegion;
    if(!region)return;
    var params=new URLSearchParams();
    if(el.dataset.miConditions)params.set('conditions',el.dataset.miConditions);
    if(el.dataset.miResponsive==='server')params.set('width',String(window.innerWidth));
    fetch(S+'/regions/'+encodeURIComponent(region)+'?'+params.toString(),{credentials:'include'})
      .then(function(res){return res.ok?res.text():'';})
      .then(function(html){el.innerHTML=html;})
      .catch(function(){});
  }

  function dismiss(id){
    fetch(S+'/dismiss/'+encodeURIComponent(id),{method:'POST',credentials:'include',keepalive:true})
      .catch(function(){});
  }

  document.addEventListener('click',function(e){
    var btn=e.target.closest&&e.target.closest('[data-mi-dismiss]');
    if(!btn)return;
    e.preventDefault();
    dismiss(btn.dataset.miDismiss);
    var msg=btn.closest('.mi-message');
    if(msg)msg.remove();
  });

  function init(){
    document.querySelectorAll('[data-mi-region]').forEach(load);
  }

  if(document.readyState==='loading'){
    document.addEventListener('DOMContentLoaded',init);
  }else{
    init();
  }

  window.messageInserter={load:load,dismiss:dismiss};
})();
`, quoted)
}

// validHost reports whether host is a hostname or IP literal with an
// optional numeric port.
func validHost(host string) bool {
	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return false
		}
		name = h
	}
	name = strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
	if name == "" {
		return false
	}
	if net.ParseIP(name) != nil {
		return true
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_':
		default:
			return false
		}
	}
	return true
}
