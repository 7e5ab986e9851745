package webapi

// The pages are small enough to keep inline; an embed.FS would be
// overkill for three static documents.

const pageStyle = `<style>
body{font-family:system-ui,sans-serif;max-width:860px;margin:2rem auto;padding:0 1rem;background:#f7f7f9;color:#222}
h1{font-size:1.5rem}
fieldset{border:1px solid #ccc;border-radius:8px;margin-bottom:1rem;padding:1rem;background:#fff}
label{display:block;margin:.6rem 0 .2rem;font-weight:600}
input[type=text],select{width:100%;padding:.4rem;border:1px solid #bbb;border-radius:4px}
input[type=range]{width:70%}
output{margin-left:.6rem}
button{padding:.5rem 1.2rem;border:none;border-radius:6px;background:#3b6fd4;color:#fff;font-size:1rem;cursor:pointer}
button:disabled{background:#9ab}
img.result{max-width:100%;border-radius:8px;margin-top:1rem}
.error{color:#b00020;font-weight:600}
.meta{font-size:.85rem;color:#555;white-space:pre-wrap}
nav a{margin-right:1rem}
.card{border:1px solid #ccc;border-radius:8px;background:#fff;padding:1rem;margin-bottom:1rem}
</style>`

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Image to Image Studio</title>` + pageStyle + `</head>
<body>
<nav><a href="/">Transform</a><a href="/demo">Demo gallery</a></nav>
<h1>Image-to-Image Transformation</h1>
<form id="gen">
  <fieldset>
    <label for="image">Input image (jpg, png, bmp, tiff, webp — max 16 MB)</label>
    <input type="file" id="image" name="image" accept=".jpg,.jpeg,.png,.bmp,.tiff,.webp" required>
    <label for="prompt">Prompt</label>
    <input type="text" id="prompt" name="prompt" placeholder="a vibrant van gogh style painting" required>
    <label for="model">Model</label>
    <select id="model" name="model"></select>
    <label for="strength">Strength <output id="strength-out">0.75</output></label>
    <input type="range" id="strength" name="strength" min="0" max="1" step="0.05" value="0.75">
    <label for="guidance">Guidance scale <output id="guidance-out">7.5</output></label>
    <input type="range" id="guidance" name="guidance_scale" min="1" max="20" step="0.5" value="7.5">
    <label for="steps">Steps <output id="steps-out">50</output></label>
    <input type="range" id="steps" name="num_steps" min="10" max="100" step="5" value="50">
  </fieldset>
  <button type="submit" id="go">Transform</button>
</form>
<p id="status"></p>
<div id="result"></div>
<script>
const $=id=>document.getElementById(id);
for(const [r,o] of [["strength","strength-out"],["guidance","guidance-out"],["steps","steps-out"]])
  $(r).addEventListener("input",()=>$(o).textContent=$(r).value);
fetch("/api/models").then(r=>r.json()).then(d=>{
  for(const m of d.models){
    const opt=document.createElement("option");
    opt.value=m.name;opt.textContent=m.name+" — "+m.description;
    $("model").appendChild(opt);
  }
});
$("gen").addEventListener("submit",async e=>{
  e.preventDefault();
  $("go").disabled=true;$("status").textContent="Generating…";$("result").innerHTML="";
  try{
    const resp=await fetch("/api/generate",{method:"POST",body:new FormData($("gen"))});
    const data=await resp.json();
    if(!resp.ok){$("status").innerHTML='<span class="error">'+data.message+"</span>";return}
    $("status").textContent="Done in "+data.metadata.generation_time.toFixed(1)+"s";
    $("result").innerHTML='<img class="result" src="'+data.image+'">'+
      '<p class="meta">'+JSON.stringify(data.metadata,null,1)+"</p>";
  }catch(err){$("status").innerHTML='<span class="error">'+err+"</span>"}
  finally{$("go").disabled=false}
});
</script>
</body>
</html>`

const demoPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Demo Gallery</title>` + pageStyle + `</head>
<body>
<nav><a href="/">Transform</a><a href="/demo">Demo gallery</a></nav>
<h1>Demo Gallery</h1>
<p>Each example transforms a built-in sample image. No upload needed.</p>
<div id="examples"></div>
<script>
fetch("/api/demo-examples").then(r=>r.json()).then(d=>{
  const root=document.getElementById("examples");
  d.examples.forEach((ex,i)=>{
    const card=document.createElement("div");
    card.className="card";
    card.innerHTML="<strong>"+ex.style+"</strong> — "+ex.model+
      '<p class="meta">'+ex.prompt+" (sample: "+ex.sample+')</p>'+
      '<button data-i="'+i+'">Run</button><div class="out"></div>';
    root.appendChild(card);
    card.querySelector("button").addEventListener("click",async ev=>{
      const btn=ev.target,out=card.querySelector(".out");
      btn.disabled=true;out.textContent="Generating…";
      const form=new FormData();
      form.set("sample",ex.sample);form.set("prompt",ex.prompt);
      form.set("model",ex.model);form.set("style",ex.style);
      try{
        const resp=await fetch("/api/generate",{method:"POST",body:form});
        const data=await resp.json();
        out.innerHTML=resp.ok?'<img class="result" src="'+data.image+'">':
          '<span class="error">'+data.message+"</span>";
      }catch(err){out.innerHTML='<span class="error">'+err+"</span>"}
      finally{btn.disabled=false}
    });
  });
});
</script>
</body>
</html>`

const loginPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Login</title>` + pageStyle + `</head>
<body>
<h1>Login</h1>
<form method="POST" action="/login">
  <fieldset>
    <label for="password">Password</label>
    <input type="password" id="password" name="password" autofocus>
  </fieldset>
  <button type="submit">Log in</button>
</form>
</body>
</html>`
