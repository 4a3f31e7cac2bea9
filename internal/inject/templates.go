package inject

import "text/template"

// 每个注入层使用固定元素 ID，脚本先移除旧实例再创建新实例，
// 保证重复注入的幂等性。
const (
	idDock        = "__kioskd-dock"
	idCursor      = "__kioskd-cursor"
	idCursorStyle = "__kioskd-cursor-style"
	idOverlay     = "__kioskd-overlay"
	idSettings    = "__kioskd-settings"
	idService     = "__kioskd-service"
	idKeys        = "__kioskd-keys"
)

var (
	dockTpl     = template.Must(template.New("dock").Parse(dockJS))
	cursorTpl   = template.Must(template.New("cursor").Parse(cursorJS))
	overlayTpl  = template.Must(template.New("overlay").Parse(overlayJS))
	settingsTpl = template.Must(template.New("settings").Parse(settingsJS))
	serviceTpl  = template.Must(template.New("service").Parse(serviceJS))
	keysTpl     = template.Must(template.New("keys").Parse(keysJS))
)

const removeFn = `
function rm(id){var e=document.getElementById(id);if(e)e.remove();}
`

const dockJS = `(function(){
var p={{.Params}};` + removeFn + `
rm(p.id);
var d=document.createElement('div');
d.id=p.id;
d.style.cssText='position:fixed;z-index:2147483644;display:flex;gap:4px;padding:6px;'+
 'background:rgba(20,20,24,.85);border-radius:12px;opacity:.25;transition:opacity .2s;'+p.anchor;
d.addEventListener('mouseenter',function(){d.style.opacity='1';});
d.addEventListener('mouseleave',function(){d.style.opacity='.25';});
var acts=[['←','goBack'],['→','goForward'],['⌂','goHome'],['↻','reload'],['♲','clearCache'],['⚙','openSettings']];
acts.forEach(function(a){
 var b=document.createElement('button');
 b.textContent=a[0];
 b.style.cssText='width:'+p.btn+'px;height:'+p.btn+'px;font-size:'+p.font+'px;border:0;'+
  'border-radius:8px;background:rgba(255,255,255,.12);color:#fff;cursor:pointer';
 b.addEventListener('click',function(ev){ev.stopPropagation();window.kioskd.call(a[1]);});
 d.appendChild(b);
});
(document.body||document.documentElement).appendChild(d);
})();`

const cursorJS = `(function(){
var p={{.Params}};` + removeFn + `
rm(p.id);rm(p.styleId);
var st=document.createElement('style');
st.id=p.styleId;
st.textContent='*{cursor:none !important}';
document.documentElement.appendChild(st);
var c=document.createElement('div');
c.id=p.id;
c.style.cssText='position:fixed;z-index:2147483647;pointer-events:none;left:0;top:0;'+
 'width:'+p.size+'px;height:'+p.size+'px;transform:translate(-2px,-2px)';
c.innerHTML=p.glyphs.def;
(document.body||document.documentElement).appendChild(c);
function shape(x,y){
 var el=document.elementFromPoint(x,y);
 if(!el)return 'def';
 if(el.closest('a,button,select,[role=button],[onclick],input[type=button],input[type=submit]'))return 'pointer';
 if(el.closest('input,textarea,[contenteditable]'))return 'text';
 var cs=getComputedStyle(el).cursor;
 if(cs==='pointer')return 'pointer';
 if(cs==='text')return 'text';
 return 'def';
}
document.addEventListener('mousemove',function(ev){
 c.style.left=ev.clientX+'px';
 c.style.top=ev.clientY+'px';
 c.innerHTML=p.glyphs[shape(ev.clientX,ev.clientY)];
},{passive:true});
})();`

const hideDockJS = `(function(){
var e=document.getElementById('` + idDock + `');if(e)e.remove();
})();`

// removeCursorJS 还原系统原生光标
const removeCursorJS = `(function(){
function rm(id){var e=document.getElementById(id);if(e)e.remove();}
rm('` + idCursor + `');rm('` + idCursorStyle + `');
})();`

const overlayJS = `(function(){
var p={{.Params}};` + removeFn + `
rm(p.id);
var o=document.createElement('div');
o.id=p.id;
o.style.cssText='position:fixed;inset:0;z-index:2147483645;display:flex;flex-direction:column;'+
 'align-items:center;justify-content:center;background:#111418;color:#e8e8ec;'+
 'font-family:system-ui,sans-serif;text-align:center';
var h=document.createElement('div');
h.style.cssText='font-size:26px;margin-bottom:12px';
h.textContent=p.title;
o.appendChild(h);
if(p.detail){
 var t=document.createElement('div');
 t.style.cssText='font-size:15px;opacity:.7;max-width:70%';
 t.textContent=p.detail;
 o.appendChild(t);
}
if(p.spinner){
 var s=document.createElement('div');
 s.style.cssText='margin-top:20px;width:28px;height:28px;border:3px solid rgba(255,255,255,.2);'+
  'border-top-color:#fff;border-radius:50%;animation:__kioskd-spin 1s linear infinite';
 var ss=document.createElement('style');
 ss.textContent='@keyframes __kioskd-spin{to{transform:rotate(360deg)}}';
 o.appendChild(ss);o.appendChild(s);
}
if(p.retry){
 var b=document.createElement('button');
 b.textContent=p.retryLabel;
 b.style.cssText='margin-top:24px;padding:10px 28px;font-size:15px;border:0;border-radius:8px;'+
  'background:#4a7dff;color:#fff;cursor:pointer';
 b.addEventListener('click',function(){window.kioskd.call('retry');});
 o.appendChild(b);
}
(document.body||document.documentElement).appendChild(o);
})();`

const clearOverlayJS = `(function(){
var e=document.getElementById('` + idOverlay + `');if(e)e.remove();
})();`

const settingsJS = `(function(){
var p={{.Params}};` + removeFn + `
rm(p.id);
var m=document.createElement('div');
m.id=p.id;
m.style.cssText='position:fixed;inset:0;z-index:2147483646;display:flex;align-items:center;'+
 'justify-content:center;background:rgba(0,0,0,.55);font-family:system-ui,sans-serif';
var card=document.createElement('div');
card.style.cssText='background:#1b1e24;color:#e8e8ec;border-radius:14px;padding:24px;min-width:340px';
var h=document.createElement('div');
h.textContent=p.title;
h.style.cssText='font-size:18px;margin-bottom:16px';
card.appendChild(h);
p.fields.forEach(function(f){
 var row=document.createElement('label');
 row.style.cssText='display:flex;justify-content:space-between;align-items:center;margin:10px 0;gap:16px;font-size:14px';
 var lbl=document.createElement('span');
 lbl.textContent=f.label;
 row.appendChild(lbl);
 if(f.options){
  var sel=document.createElement('select');
  sel.style.cssText='background:#2a2e36;color:#fff;border:0;border-radius:6px;padding:6px 10px';
  f.options.forEach(function(o){
   var opt=document.createElement('option');
   opt.value=o;opt.textContent=o;
   if(o===f.value)opt.selected=true;
   sel.appendChild(opt);
  });
  sel.addEventListener('change',function(){window.kioskd.call('setConfig',{key:f.key,value:sel.value});});
  row.appendChild(sel);
 }else{
  var inp=document.createElement('input');
  inp.value=f.value;
  inp.style.cssText='background:#2a2e36;color:#fff;border:0;border-radius:6px;padding:6px 10px;width:180px';
  inp.addEventListener('change',function(){window.kioskd.call('setConfig',{key:f.key,value:inp.value});});
  row.appendChild(inp);
 }
 card.appendChild(row);
});
var foot=document.createElement('div');
foot.style.cssText='display:flex;justify-content:space-between;margin-top:18px';
var reset=document.createElement('button');
reset.textContent=p.resetLabel;
reset.style.cssText='padding:8px 18px;border:0;border-radius:8px;background:#3a3f48;color:#fff;cursor:pointer';
reset.addEventListener('click',function(){window.kioskd.call('resetConfig');});
var close=document.createElement('button');
close.textContent=p.closeLabel;
close.style.cssText='padding:8px 18px;border:0;border-radius:8px;background:#4a7dff;color:#fff;cursor:pointer';
close.addEventListener('click',function(){window.kioskd.call('closeSettings');});
foot.appendChild(reset);foot.appendChild(close);
card.appendChild(foot);
m.appendChild(card);
(document.body||document.documentElement).appendChild(m);
})();`

const hideSettingsJS = `(function(){
var e=document.getElementById('` + idSettings + `');if(e)e.remove();
})();`

const serviceJS = `(function(){
var p={{.Params}};` + removeFn + `
rm(p.id);
var m=document.createElement('div');
m.id=p.id;
m.style.cssText='position:fixed;inset:0;z-index:2147483646;display:flex;align-items:center;'+
 'justify-content:center;background:rgba(0,0,0,.6);font-family:ui-monospace,monospace';
var card=document.createElement('div');
card.style.cssText='background:#14171c;color:#d6d9df;border-radius:12px;padding:22px;min-width:420px;font-size:13px';
function line(k,v){
 var r=document.createElement('div');
 r.style.cssText='display:flex;justify-content:space-between;gap:20px;margin:4px 0';
 var a=document.createElement('span');a.style.opacity='.6';a.textContent=k;
 var b=document.createElement('span');b.textContent=v;
 r.appendChild(a);r.appendChild(b);
 card.appendChild(r);
}
line('url',p.currentUrl);
line('host',p.hostname);
line('net',p.online?'online':'offline');
p.addresses.forEach(function(ip){line('ipv4',ip);});
p.recent.forEach(function(ev){line(ev.type,ev.detail);});
var row=document.createElement('div');
row.style.cssText='display:flex;gap:8px;margin-top:16px';
var inp=document.createElement('input');
inp.placeholder='http://...';
inp.style.cssText='flex:1;background:#232830;color:#fff;border:0;border-radius:6px;padding:7px 10px';
var go=document.createElement('button');
go.textContent=p.goLabel;
go.style.cssText='padding:7px 16px;border:0;border-radius:6px;background:#4a7dff;color:#fff;cursor:pointer';
go.addEventListener('click',function(){window.kioskd.call('navigate',{url:inp.value});});
var rel=document.createElement('button');
rel.textContent=p.reloadLabel;
rel.style.cssText='padding:7px 16px;border:0;border-radius:6px;background:#3a3f48;color:#fff;cursor:pointer';
rel.addEventListener('click',function(){window.kioskd.call('reload');});
var cls=document.createElement('button');
cls.textContent=p.closeLabel;
cls.style.cssText='padding:7px 16px;border:0;border-radius:6px;background:#3a3f48;color:#fff;cursor:pointer';
cls.addEventListener('click',function(){window.kioskd.call('hideServiceMenu');});
row.appendChild(inp);row.appendChild(go);row.appendChild(rel);row.appendChild(cls);
card.appendChild(row);
m.appendChild(card);
(document.body||document.documentElement).appendChild(m);
})();`

const hideServiceJS = `(function(){
var e=document.getElementById('` + idService + `');if(e)e.remove();
})();`

const keysJS = `(function(){
var p={{.Params}};
if(window['` + idKeys + `'])return;
window['` + idKeys + `']=true;
document.addEventListener('keydown',function(ev){
 var k=ev.key;
 var mod=ev.ctrlKey||ev.metaKey;
 if(mod&&ev.shiftKey&&k==='F12'){ev.preventDefault();window.kioskd.call('toggleServiceMenu');return;}
 if(p.dev)return;
 if(mod&&(k==='w'||k==='W'||k==='q'||k==='Q')){ev.preventDefault();return;}
 if(k==='F11'||k==='Escape'){ev.preventDefault();return;}
 if(k==='F12'||(mod&&ev.shiftKey&&(k==='i'||k==='I'))){ev.preventDefault();return;}
 if(mod&&(k==='r'||k==='R')){ev.preventDefault();window.kioskd.call('reload');return;}
},true);
})();`

// bridgeShimJS 在每个新文档建立 window.kioskd 调用通道。
// 页面通过 CDP binding 发送 JSON 信封，宿主用 __kioskdReply 回投结果。
const bridgeShimJS = `(function(){
if(window.kioskd)return;
var seq=0,pending={};
window.__kioskdReply=function(id,payload){
 var cb=pending[id];
 if(!cb)return;
 delete pending[id];
 cb(payload);
};
window.kioskd={
 call:function(method,params){
  return new Promise(function(resolve){
   var id=++seq;
   pending[id]=resolve;
   window.__kioskdHost(JSON.stringify({id:id,method:method,params:params||{}}));
  });
 }
};
})();`
