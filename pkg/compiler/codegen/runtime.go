package codegen

// generateRuntime appends the support routines the program used, plus the
// data they share. The routines follow cdecl and preserve %ebx.
func (g *Generator) generateRuntime() {
	if !g.usesRead && !g.usesWrite {
		return
	}

	g.emitRaw("\t.data")
	g.emitRaw("__stacklang_reads:")
	g.emit(".long 0")
	g.emitRaw("__stacklang_writes:")
	g.emit(".long 0")
	g.emitRaw("__stacklang_fmt_in:")
	g.emit(`.string "%%d"`)
	g.emitRaw("__stacklang_fmt_out:")
	g.emit(`.string "%%d\n"`)
	g.emitRaw("__stacklang_prompt:")
	g.emit(`.string "> "`)
	g.emitRaw("\t.text")

	if g.usesRead {
		g.generateReadRoutine()
	}
	if g.usesWrite {
		g.generateWriteRoutine()
	}
}

// generateReadRoutine returns the scanned integer in %eax.
func (g *Generator) generateReadRoutine() {
	g.emitRaw(ReadRoutine + ":")
	g.emit("pushl %%ebp")
	g.emit("movl %%esp, %%ebp")
	g.emit("subl $4, %%esp")
	g.emit("movl $0, -4(%%ebp)")
	g.emit("incl __stacklang_reads")
	g.emit("leal -4(%%ebp), %%eax")
	g.emit("pushl %%eax")
	g.emit("pushl $__stacklang_fmt_in")
	g.emit("call scanf")
	g.emit("addl $8, %%esp")
	g.emit("movl -4(%%ebp), %%eax")
	g.emit("movl %%ebp, %%esp")
	g.emit("popl %%ebp")
	g.emit("ret")
}

// generateWriteRoutine prints its argument on its own line. Before the
// first line it echoes one prompt per completed read.
func (g *Generator) generateWriteRoutine() {
	g.emitRaw(WriteRoutine + ":")
	g.emit("pushl %%ebp")
	g.emit("movl %%esp, %%ebp")
	g.emit("pushl %%ebx")
	g.emit("cmpl $0, __stacklang_writes")
	g.emit("jne .Lstacklang_write_value")
	g.emit("movl __stacklang_reads, %%ebx")
	g.emitRaw(".Lstacklang_prompt_loop:")
	g.emit("cmpl $0, %%ebx")
	g.emit("je .Lstacklang_write_value")
	g.emit("pushl $__stacklang_prompt")
	g.emit("call printf")
	g.emit("addl $4, %%esp")
	g.emit("decl %%ebx")
	g.emit("jmp .Lstacklang_prompt_loop")
	g.emitRaw(".Lstacklang_write_value:")
	g.emit("pushl 8(%%ebp)")
	g.emit("pushl $__stacklang_fmt_out")
	g.emit("call printf")
	g.emit("addl $8, %%esp")
	g.emit("incl __stacklang_writes")
	g.emit("popl %%ebx")
	g.emit("movl %%ebp, %%esp")
	g.emit("popl %%ebp")
	g.emit("ret")
}
