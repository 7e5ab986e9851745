package studio

// studioPage is the whole interactive UI: input panel on the left,
// output on the right, parameter sliders underneath.
const studioPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Image-to-Image Studio</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#1c1c22;color:#eee}
header{padding:1rem 2rem;background:#26262e;font-size:1.3rem;font-weight:600}
main{display:grid;grid-template-columns:1fr 1fr;gap:1rem;padding:1rem 2rem}
.panel{background:#26262e;border-radius:10px;padding:1rem;min-height:320px}
.panel h2{margin-top:0;font-size:1rem;color:#aab}
.panel img{max-width:100%;border-radius:6px}
#controls{grid-column:1/3;background:#26262e;border-radius:10px;padding:1rem}
label{display:block;margin:.7rem 0 .2rem;font-weight:600}
input[type=text],select{width:100%;padding:.4rem;border-radius:4px;border:1px solid #444;background:#1c1c22;color:#eee}
input[type=range]{width:60%}
output{margin-left:.6rem;color:#8ac}
button{padding:.6rem 1.6rem;border:none;border-radius:6px;background:#5b8def;color:#fff;font-size:1rem;cursor:pointer;margin-top:1rem}
button:disabled{background:#456}
#model-info{font-size:.85rem;color:#99a;margin-top:.4rem}
.error{color:#f77;font-weight:600}
</style>
</head>
<body>
<header>Image-to-Image Studio</header>
<main>
  <div class="panel"><h2>Input</h2>
    <input type="file" id="file" accept="image/*">
    <div id="input-preview"></div>
  </div>
  <div class="panel"><h2>Output</h2><div id="output"></div><p id="status"></p></div>
  <div id="controls">
    <label for="prompt">Prompt</label>
    <input type="text" id="prompt" placeholder="describe the transformation">
    <label for="negative">Negative prompt</label>
    <input type="text" id="negative" placeholder="ugly, blurry, low quality">
    <label for="model">Model</label>
    <select id="model"></select>
    <div id="model-info"></div>
    <label>Strength <output id="strength-v">0.75</output></label>
    <input type="range" id="strength" min="0" max="1" step="0.05" value="0.75">
    <label>Guidance scale <output id="guidance-v">7.5</output></label>
    <input type="range" id="guidance" min="1" max="20" step="0.5" value="7.5">
    <label>Steps <output id="steps-v">50</output></label>
    <input type="range" id="steps" min="10" max="100" step="5" value="50">
    <button id="go">Transform</button>
  </div>
</main>
<script>
const $=id=>document.getElementById(id);
let inputData=null,models=[];
for(const k of ["strength","guidance","steps"])
  $(k).addEventListener("input",()=>$(k+"-v").textContent=$(k).value);
fetch("/api/models").then(r=>r.json()).then(d=>{
  models=d.models;
  for(const m of models){
    const o=document.createElement("option");
    o.value=m.name;o.textContent=m.name;
    $("model").appendChild(o);
  }
  showModelInfo();
});
function showModelInfo(){
  const m=models.find(x=>x.name===$("model").value);
  if(!m)return;
  $("model-info").textContent=m.description+" · max "+m.max_resolution+"px · defaults: strength "+
    m.default_strength+", guidance "+m.default_guidance_scale+", steps "+m.default_steps;
  $("strength").value=m.default_strength;$("strength-v").textContent=m.default_strength;
  $("guidance").value=m.default_guidance_scale;$("guidance-v").textContent=m.default_guidance_scale;
  $("steps").value=m.default_steps;$("steps-v").textContent=m.default_steps;
}
$("model").addEventListener("change",showModelInfo);
$("file").addEventListener("change",()=>{
  const f=$("file").files[0];
  if(!f)return;
  const reader=new FileReader();
  reader.onload=()=>{
    inputData=reader.result;
    $("input-preview").innerHTML='<img src="'+inputData+'">';
  };
  reader.readAsDataURL(f);
});
$("go").addEventListener("click",async()=>{
  if(!inputData){$("status").innerHTML='<span class="error">Choose an input image first</span>';return}
  $("go").disabled=true;$("status").textContent="Generating…";
  try{
    const resp=await fetch("/api/transform",{
      method:"POST",
      headers:{"Content-Type":"application/json"},
      body:JSON.stringify({
        image:inputData,
        prompt:$("prompt").value,
        negative_prompt:$("negative").value,
        model:$("model").value,
        strength:parseFloat($("strength").value),
        guidance_scale:parseFloat($("guidance").value),
        num_inference_steps:parseInt($("steps").value,10)
      })
    });
    const data=await resp.json();
    if(!resp.ok){$("status").innerHTML='<span class="error">'+data.error+"</span>";return}
    $("output").innerHTML='<img src="'+data.image+'">';
    let status="Done in "+data.generation_time.toFixed(1)+"s · seed "+data.seed;
    if(data.saved_to){status+=" · saved to "+data.saved_to}
    $("status").textContent=status;
  }catch(err){$("status").innerHTML='<span class="error">'+err+"</span>"}
  finally{$("go").disabled=false}
});
</script>
</body>
</html>`
